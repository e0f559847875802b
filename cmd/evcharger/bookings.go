package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/internal/refresh"
)

func bookingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "bookings",
		Usage: "List your bookings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "List the bookings stored on the reservation API",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Refresh the list periodically",
			},
		},
		Action: bookingsAction,
	}
}

func bookingsAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	load := func(ctx context.Context) ([]booking.Booking, error) {
		if c.Bool("remote") {
			return env.client.UserBookings(ctx)
		}
		return env.storage.Bookings(ctx)
	}

	if !c.Bool("watch") {
		bookings, err := load(c.Context)
		if err != nil {
			return err
		}
		printBookings(c.App.Writer, bookings, time.Now(), env.cfg.Booking.CancelWindow)
		return nil
	}

	ctx, stop := signalContext(c.Context)
	defer stop()
	refresh.Poll(ctx, env.cfg.Poll.Interval, func(ctx context.Context) {
		bookings, err := load(ctx)
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
			return
		}
		printBookings(c.App.Writer, bookings, time.Now(), env.cfg.Booking.CancelWindow)
	})
	return nil
}

func printBookings(w io.Writer, bookings []booking.Booking, now time.Time, window time.Duration) {
	if len(bookings) == 0 {
		fmt.Fprintln(w, "No bookings.")
		return
	}

	for _, b := range bookings {
		printBooking(w, b)
		if b.Status != booking.StatusCancelled && booking.CheckCancel(b.Date, b.TimeSlot, now, window) != nil {
			fmt.Fprintln(w, "   Cancellation closed")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d bookings\n", len(bookings))
}
