// Package booking holds reservation records and the client side booking
// rules: hourly slots, pricing, and the cancellation window.
package booking

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rubiojr/evcharger/pkg/station"
)

const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"

	// DefaultSessionKwh is the energy a booking is priced for.
	DefaultSessionKwh = 10.0
	// DefaultCancelWindow is how close to the slot start a booking can no
	// longer be cancelled.
	DefaultCancelWindow = 20 * time.Minute

	firstSlotHour = 6
	lastSlotHour  = 22
)

type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
)

var (
	ErrCancelWindow = errors.New("cancellation is not allowed this close to the booking time")
	ErrCancelled    = errors.New("booking already cancelled")
	ErrInvalidSlot  = errors.New("invalid time slot")
)

// Vehicle is the driver's saved vehicle profile.
type Vehicle struct {
	Brand     string  `json:"brand"`
	Model     string  `json:"model"`
	RangeKm   float64 `json:"rangeKm"`
	Connector string  `json:"connector,omitempty"`
}

// Booking is a reservation of a station slot.
type Booking struct {
	ID          string    `json:"id"`
	RemoteID    string    `json:"remoteId,omitempty"`
	StationID   int64     `json:"stationId"`
	StationName string    `json:"stationName"`
	Date        string    `json:"date"`
	TimeSlot    string    `json:"timeSlot"`
	Duration    int       `json:"duration"`
	Vehicle     *Vehicle  `json:"vehicleData,omitempty"`
	Amount      float64   `json:"amount"`
	Status      Status    `json:"status"`
	BookedAt    time.Time `json:"bookedAt"`
}

// Start returns the slot start time in loc.
func (b Booking) Start(loc *time.Location) (time.Time, error) {
	return SlotStart(b.Date, b.TimeSlot, loc)
}

// Request holds what the driver picks for a booking.
type Request struct {
	Date     string
	TimeSlot string
	Duration int
}

// Validate checks the date and slot formats and the duration.
func (r Request) Validate() error {
	if _, err := SlotStart(r.Date, r.TimeSlot, time.UTC); err != nil {
		return err
	}
	if r.Duration < 1 {
		return fmt.Errorf("duration must be at least one hour, got %d", r.Duration)
	}
	return nil
}

// Amount prices a charging session.
func Amount(pricePerKwh, sessionKwh float64) float64 {
	return math.Round(pricePerKwh*sessionKwh*100) / 100
}

// New builds a confirmed booking for the selected station.
func New(s station.Ranked, req Request, vehicle *Vehicle, sessionKwh float64, now time.Time) Booking {
	if sessionKwh <= 0 {
		sessionKwh = DefaultSessionKwh
	}
	return Booking{
		ID:          uuid.NewString(),
		StationID:   s.ID,
		StationName: s.Name,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
		Duration:    req.Duration,
		Vehicle:     vehicle,
		Amount:      Amount(s.PricePerKwh, sessionKwh),
		Status:      StatusConfirmed,
		BookedAt:    now.UTC(),
	}
}

// SlotStart parses a date and an HH:MM slot in loc.
func SlotStart(date, slot string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+SlotLayout, date+" "+slot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q on %q: %v", ErrInvalidSlot, slot, date, err)
	}
	return t, nil
}

// TimeSlots lists the bookable hourly slots for date. For today, slots start
// at the next full hour.
func TimeSlots(date string, now time.Time) []string {
	start := firstSlotHour
	if date == now.Format(DateLayout) {
		start = max(now.Hour()+1, firstSlotHour)
	}

	slots := make([]string, 0, lastSlotHour-firstSlotHour+1)
	for hour := start; hour <= lastSlotHour; hour++ {
		slots = append(slots, fmt.Sprintf("%02d:00", hour))
	}
	return slots
}

// CheckCancel returns ErrCancelWindow when the slot starts within window of
// now. Slots already started, or that cannot be parsed, are not blocked.
func CheckCancel(date, slot string, now time.Time, window time.Duration) error {
	if window <= 0 {
		window = DefaultCancelWindow
	}
	start, err := SlotStart(date, slot, now.Location())
	if err != nil {
		return nil
	}

	minutes := int(math.Floor(start.Sub(now).Minutes()))
	if minutes >= 0 && minutes <= int(window.Minutes()) {
		return ErrCancelWindow
	}
	return nil
}

// Cancel marks b cancelled, applying the cancellation window.
func Cancel(b Booking, now time.Time, window time.Duration) (Booking, error) {
	if b.Status == StatusCancelled {
		return b, ErrCancelled
	}
	if err := CheckCancel(b.Date, b.TimeSlot, now, window); err != nil {
		return b, err
	}
	b.Status = StatusCancelled
	return b, nil
}
