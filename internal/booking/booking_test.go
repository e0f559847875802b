package booking

import (
	"testing"
	"time"

	"github.com/rubiojr/evcharger/pkg/station"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlots(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 35, 0, 0, time.UTC)

	t.Run("future day starts at six", func(t *testing.T) {
		slots := TimeSlots("2026-03-11", now)
		require.Len(t, slots, 17)
		assert.Equal(t, "06:00", slots[0])
		assert.Equal(t, "22:00", slots[len(slots)-1])
	})

	t.Run("today starts at the next hour", func(t *testing.T) {
		slots := TimeSlots("2026-03-10", now)
		require.NotEmpty(t, slots)
		assert.Equal(t, "15:00", slots[0])
		assert.Equal(t, "22:00", slots[len(slots)-1])
	})

	t.Run("early morning today still starts at six", func(t *testing.T) {
		early := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
		assert.Equal(t, "06:00", TimeSlots("2026-03-10", early)[0])
	})

	t.Run("late night today has no slots", func(t *testing.T) {
		late := time.Date(2026, 3, 10, 22, 10, 0, 0, time.UTC)
		assert.Empty(t, TimeSlots("2026-03-10", late))
	})
}

func TestCheckCancel(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date string
		slot string
		want error
	}{
		{"slot starting now", "2026-03-10", "14:00", ErrCancelWindow},
		{"within window", "2026-03-10", "14:15", ErrCancelWindow},
		{"on the window edge", "2026-03-10", "14:20", ErrCancelWindow},
		{"outside window", "2026-03-10", "15:00", nil},
		{"already started", "2026-03-10", "13:00", nil},
		{"another day", "2026-03-11", "14:00", nil},
		{"unparsable slot", "2026-03-10", "soon", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckCancel(tt.date, tt.slot, now, DefaultCancelWindow)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCheckCancelFloorsMinutes(t *testing.T) {
	// 20m59s before the slot floors to 20 minutes, which is still blocked.
	now := time.Date(2026, 3, 10, 13, 39, 1, 0, time.UTC)
	assert.ErrorIs(t, CheckCancel("2026-03-10", "14:00", now, DefaultCancelWindow), ErrCancelWindow)

	now = time.Date(2026, 3, 10, 13, 38, 59, 0, time.UTC)
	assert.NoError(t, CheckCancel("2026-03-10", "14:00", now, DefaultCancelWindow))
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	b := Booking{ID: "b1", Date: "2026-03-10", TimeSlot: "18:00", Status: StatusConfirmed}

	cancelled, err := Cancel(b, now, DefaultCancelWindow)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, StatusConfirmed, b.Status)

	_, err = Cancel(cancelled, now, DefaultCancelWindow)
	assert.ErrorIs(t, err, ErrCancelled)

	soon := Booking{ID: "b2", Date: "2026-03-10", TimeSlot: "09:00", Status: StatusConfirmed}
	_, err = Cancel(soon, now, DefaultCancelWindow)
	assert.ErrorIs(t, err, ErrCancelWindow)
}

func TestNew(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s := station.Ranked{Record: station.Record{ID: 42, Name: "Bandra Hub", PricePerKwh: 12.5}}
	vehicle := &Vehicle{Brand: "Tata", Model: "Nexon EV", RangeKm: 300}

	b := New(s, Request{Date: "2026-03-11", TimeSlot: "10:00", Duration: 2}, vehicle, 0, now)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, int64(42), b.StationID)
	assert.Equal(t, "Bandra Hub", b.StationName)
	assert.Equal(t, 125.0, b.Amount)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.Equal(t, now, b.BookedAt)
	assert.Same(t, vehicle, b.Vehicle)

	other := New(s, Request{Date: "2026-03-11", TimeSlot: "10:00", Duration: 1}, nil, 20, now)
	assert.NotEqual(t, b.ID, other.ID)
	assert.Equal(t, 250.0, other.Amount)
}

func TestAmount(t *testing.T) {
	assert.Equal(t, 0.0, Amount(0, 10))
	assert.Equal(t, 183.3, Amount(18.33, 10))
	assert.Equal(t, 33.33, Amount(3.333, 10))
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Date: "2026-03-11", TimeSlot: "10:00", Duration: 1}.Validate())
	assert.ErrorIs(t, Request{Date: "11/03/2026", TimeSlot: "10:00", Duration: 1}.Validate(), ErrInvalidSlot)
	assert.ErrorIs(t, Request{Date: "2026-03-11", TimeSlot: "", Duration: 1}.Validate(), ErrInvalidSlot)
	assert.Error(t, Request{Date: "2026-03-11", TimeSlot: "10:00", Duration: 0}.Validate())
}

func TestBookingStart(t *testing.T) {
	b := Booking{Date: "2026-03-11", TimeSlot: "07:00"}
	start, err := b.Start(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC), start)
}
