// Package station ranks charging stations around a user position: distance,
// reachability against a vehicle range, availability and a priority class
// that orders the list shown to the driver.
package station

import (
	"fmt"
	"strings"
)

// DefaultConnector is assumed when a station reports no connector types.
const DefaultConnector = "ccs"

// MaintenanceStatus is the Record.Status reported for stations under
// maintenance.
const MaintenanceStatus = "Maintenance"

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String formats p as "lat, lng" with four decimals.
func (p Position) String() string {
	return fmt.Sprintf("%.4f, %.4f", p.Lat, p.Lng)
}

// Record is a charging station as listed by the station directory.
type Record struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Position       Position `json:"position"`
	Address        string   `json:"address"`
	PricePerKwh    float64  `json:"pricePerKwh"`
	PowerOutput    string   `json:"powerOutput"`
	OperatingHours string   `json:"operatingHours"`
	TotalSlots     int      `json:"totalSlots"`
	AvailableSlots int      `json:"availableSlots"`
	ConnectorTypes []string `json:"connectorTypes"`
	Amenities      []string `json:"amenities"`
	Status         string   `json:"status"`
}

// PrimaryConnector returns the first connector type, lower-cased, or
// DefaultConnector when the station lists none.
func (r Record) PrimaryConnector() string {
	if len(r.ConnectorTypes) == 0 || r.ConnectorTypes[0] == "" {
		return DefaultConnector
	}
	return strings.ToLower(r.ConnectorTypes[0])
}

// Priority orders ranked stations, lower first.
type Priority int

const (
	PriorityRecommended Priority = 1 // reachable and available
	PriorityBusy        Priority = 2 // reachable, no free slot
	PriorityOutOfRange  Priority = 3
)

func (p Priority) String() string {
	switch p {
	case PriorityRecommended:
		return "recommended"
	case PriorityBusy:
		return "busy"
	case PriorityOutOfRange:
		return "out of range"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Ranked is a Record annotated for a given user position and range.
type Ranked struct {
	Record
	DistanceKm  int      `json:"distanceKm"`
	IsReachable bool     `json:"isReachable"`
	IsAvailable bool     `json:"isAvailable"`
	Priority    Priority `json:"priority"`
}
