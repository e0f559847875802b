package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/internal/evdb"
	"github.com/rubiojr/evcharger/pkg/api"
	"github.com/rubiojr/evcharger/pkg/station"
)

func bookCommand() *cli.Command {
	flags := append(locationFlags(),
		&cli.Int64Flag{
			Name:     "station",
			Aliases:  []string{"s"},
			Usage:    "Station ID",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "date",
			Usage: "Date (YYYY-MM-DD)",
			Value: time.Now().Format(booking.DateLayout),
		},
		&cli.StringFlag{
			Name:     "slot",
			Usage:    "Time slot (HH:00), see the slots command",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "duration",
			Usage: "Duration in hours",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "remote",
			Usage: "Also create the booking on the reservation API",
		},
	)

	return &cli.Command{
		Name:   "book",
		Usage:  "Book a charging slot",
		Flags:  flags,
		Action: bookAction,
	}
}

func bookAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	now := time.Now()
	req := booking.Request{
		Date:     c.String("date"),
		TimeSlot: c.String("slot"),
		Duration: c.Int("duration"),
	}
	if err := checkRequest(req, now); err != nil {
		return err
	}

	pos, _, err := env.resolvePosition(c)
	if err != nil {
		return err
	}
	records, err := env.client.Stations(c.Context)
	if err != nil {
		return err
	}
	ranked := station.Rank(records, pos, env.userRange(c), station.AllStations)

	id := c.Int64("station")
	selected, ok := station.Find(ranked, id)
	if !ok {
		return fmt.Errorf("station %d not found", id)
	}

	var vehicle *booking.Vehicle
	if v, err := env.storage.Vehicle(c.Context); err == nil {
		vehicle = &v
	} else if !errors.Is(err, evdb.ErrNotFound) {
		env.log.Error("Failed to load vehicle", "error", err)
	}

	b := booking.New(selected, req, vehicle, env.cfg.Booking.SessionKwh, now)

	if c.Bool("remote") {
		var vehicleData any
		if vehicle != nil {
			vehicleData = vehicle
		}
		remote, err := env.client.CreateBooking(c.Context, api.BookingRequest{
			StationID:   b.StationID,
			Date:        b.Date,
			TimeSlot:    b.TimeSlot,
			Duration:    b.Duration,
			VehicleData: vehicleData,
			Amount:      b.Amount,
		})
		if err != nil {
			return err
		}
		b.RemoteID = remote.ID
		if remote.Status != "" {
			b.Status = remote.Status
		}
	}

	if err := env.storage.AddBooking(c.Context, b); err != nil {
		return fmt.Errorf("error saving booking: %w", err)
	}

	fmt.Fprintln(c.App.Writer, "Booking confirmed:")
	printBooking(c.App.Writer, b)
	return nil
}

// checkRequest validates the request and makes sure the slot is still
// offered.
func checkRequest(req booking.Request, now time.Time) error {
	if err := req.Validate(); err != nil {
		return err
	}
	start, err := booking.SlotStart(req.Date, req.TimeSlot, now.Location())
	if err != nil {
		return err
	}
	if !start.After(now) {
		return fmt.Errorf("%w: %s %s has already started", booking.ErrInvalidSlot, req.Date, req.TimeSlot)
	}
	if !slices.Contains(booking.TimeSlots(req.Date, now), req.TimeSlot) {
		return fmt.Errorf("%w: %s is not a bookable slot", booking.ErrInvalidSlot, req.TimeSlot)
	}
	return nil
}

func printBooking(w io.Writer, b booking.Booking) {
	fmt.Fprintf(w, "%s  %s\n", b.ID, b.StationName)
	fmt.Fprintf(w, "   Station ID: %d\n", b.StationID)
	fmt.Fprintf(w, "   When: %s %s, %dh\n", b.Date, b.TimeSlot, b.Duration)
	fmt.Fprintf(w, "   Amount: ₹%.2f\n", b.Amount)
	fmt.Fprintf(w, "   Status: %s\n", b.Status)
	if b.RemoteID != "" && b.RemoteID != b.ID {
		fmt.Fprintf(w, "   Remote ID: %s\n", b.RemoteID)
	}
	if b.Vehicle != nil {
		fmt.Fprintf(w, "   Vehicle: %s %s\n", b.Vehicle.Brand, b.Vehicle.Model)
	}
}
