package evdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/pkg/station"
)

// SavedLocation is the last position the driver searched from.
type SavedLocation struct {
	station.Position
	Name      string    `json:"name,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Bookings returns every stored booking in the order they were made. An
// empty store returns an empty list.
func (s *Storage) Bookings(ctx context.Context) ([]booking.Booking, error) {
	var bookings []booking.Booking
	if err := s.getJSON(ctx, KeyBookings, &bookings); err != nil {
		if errors.Is(err, ErrNotFound) {
			return []booking.Booking{}, nil
		}
		return nil, err
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	return bookings, nil
}

// UpdateBookings applies fn to a copy of the stored bookings and writes the
// result back in the same transaction.
func (s *Storage) UpdateBookings(ctx context.Context, fn func([]booking.Booking) ([]booking.Booking, error)) error {
	return s.Update(ctx, KeyBookings, func(current []byte) ([]byte, error) {
		bookings := []booking.Booking{}
		if len(current) > 0 {
			if err := json.Unmarshal(current, &bookings); err != nil {
				return nil, fmt.Errorf("error unmarshaling %s: %w", KeyBookings, err)
			}
		}

		next, err := fn(slices.Clone(bookings))
		if err != nil {
			return nil, err
		}
		if next == nil {
			next = []booking.Booking{}
		}

		data, err := json.Marshal(next)
		if err != nil {
			return nil, fmt.Errorf("error marshaling %s: %w", KeyBookings, err)
		}
		return data, nil
	})
}

// AddBooking appends b to the stored bookings, which stay in the order they
// were made.
func (s *Storage) AddBooking(ctx context.Context, b booking.Booking) error {
	return s.UpdateBookings(ctx, func(bookings []booking.Booking) ([]booking.Booking, error) {
		return append(bookings, b), nil
	})
}

// Booking looks up a booking by its local or remote id.
func (s *Storage) Booking(ctx context.Context, id string) (booking.Booking, error) {
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return booking.Booking{}, err
	}
	i := indexOf(bookings, id)
	if i < 0 {
		return booking.Booking{}, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return bookings[i], nil
}

// CancelBooking marks the booking cancelled when the cancellation window
// allows it. The stored list is left unchanged on error.
func (s *Storage) CancelBooking(ctx context.Context, id string, now time.Time, window time.Duration) (booking.Booking, error) {
	return s.CancelBookingWith(ctx, id, now, window, nil)
}

// CancelBookingWith is CancelBooking with a confirm step. confirm runs inside
// the write, after the window check and before the cancelled booking is
// stored; when it fails nothing is stored.
func (s *Storage) CancelBookingWith(ctx context.Context, id string, now time.Time, window time.Duration, confirm func(booking.Booking) error) (booking.Booking, error) {
	var cancelled booking.Booking
	err := s.UpdateBookings(ctx, func(bookings []booking.Booking) ([]booking.Booking, error) {
		i := indexOf(bookings, id)
		if i < 0 {
			return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
		}
		b, err := booking.Cancel(bookings[i], now, window)
		if err != nil {
			return nil, err
		}
		if confirm != nil {
			if err := confirm(b); err != nil {
				return nil, err
			}
		}
		bookings[i] = b
		cancelled = b
		return bookings, nil
	})
	if err != nil {
		return booking.Booking{}, err
	}
	return cancelled, nil
}

func indexOf(bookings []booking.Booking, id string) int {
	return slices.IndexFunc(bookings, func(b booking.Booking) bool {
		return b.ID == id || (b.RemoteID != "" && b.RemoteID == id)
	})
}

// Vehicle returns the saved vehicle profile, or ErrNotFound.
func (s *Storage) Vehicle(ctx context.Context) (booking.Vehicle, error) {
	var v booking.Vehicle
	if err := s.getJSON(ctx, KeyVehicle, &v); err != nil {
		return booking.Vehicle{}, err
	}
	return v, nil
}

func (s *Storage) SaveVehicle(ctx context.Context, v booking.Vehicle) error {
	return s.putJSON(ctx, KeyVehicle, v)
}

// LastLocation returns the last saved search position, or ErrNotFound.
func (s *Storage) LastLocation(ctx context.Context) (SavedLocation, error) {
	var loc SavedLocation
	if err := s.getJSON(ctx, KeyLocation, &loc); err != nil {
		return SavedLocation{}, err
	}
	return loc, nil
}

// LastPosition is LastLocation without the metadata.
func (s *Storage) LastPosition(ctx context.Context) (station.Position, error) {
	loc, err := s.LastLocation(ctx)
	if err != nil {
		return station.Position{}, err
	}
	return loc.Position, nil
}

func (s *Storage) SavePosition(ctx context.Context, pos station.Position, name string) error {
	return s.putJSON(ctx, KeyLocation, SavedLocation{
		Position:  pos,
		Name:      name,
		UpdatedAt: time.Now().UTC(),
	})
}
