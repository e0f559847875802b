package api

import (
	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/pkg/station"
)

// ToRecord normalizes a station payload. Missing or malformed numeric fields
// are zero and nil lists become empty.
func (p StationPayload) ToRecord() station.Record {
	connectors := p.ConnectorTypes
	if connectors == nil {
		connectors = []string{}
	}
	amenities := p.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	return station.Record{
		ID:             int64(p.ID),
		Name:           p.Name,
		Position:       station.Position{Lat: float64(p.Latitude), Lng: float64(p.Longitude)},
		Address:        p.Address,
		PricePerKwh:    float64(p.PricePerKwh),
		PowerOutput:    string(p.PowerOutput),
		OperatingHours: p.OperatingHours,
		TotalSlots:     int(p.TotalSlots),
		AvailableSlots: int(p.AvailableSlots),
		ConnectorTypes: connectors,
		Amenities:      amenities,
		Status:         p.Status,
	}
}

// Records normalizes every station in the list.
func (l *StationList) Records() []station.Record {
	if l == nil {
		return []station.Record{}
	}
	records := make([]station.Record, 0, len(l.Stations))
	for i := range l.Stations {
		records = append(records, l.Stations[i].ToRecord())
	}
	return records
}

func (b remoteBooking) toBooking() booking.Booking {
	out := booking.Booking{
		ID:          firstString(string(b.ID), string(b.IDAlt)),
		StationID:   int64(b.StationID),
		StationName: b.StationName,
		Date:        firstString(b.Date, b.DateAlt),
		TimeSlot:    firstString(b.TimeSlot, b.TimeSlotAlt),
		Duration:    int(b.Duration),
		Amount:      float64(b.Amount),
		Status:      booking.Status(firstString(b.Status, b.StatusAlt)),
	}
	out.RemoteID = out.ID

	if out.StationID == 0 {
		out.StationID = int64(b.StationAlt)
	}
	if b.Station != nil {
		if out.StationID == 0 {
			out.StationID = int64(b.Station.ID)
		}
		if out.StationName == "" {
			out.StationName = b.Station.Name
		}
	}
	if out.Duration == 0 {
		out.Duration = int(b.DurationAlt)
	}
	if out.Amount == 0 {
		out.Amount = float64(b.AmountAlt)
	}
	switch {
	case b.CreatedAt != nil:
		out.BookedAt = *b.CreatedAt
	case b.CreatedAlt != nil:
		out.BookedAt = *b.CreatedAlt
	}
	return out
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
