package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
)

func cancelCommand() *cli.Command {
	return &cli.Command{
		Name:      "cancel",
		Usage:     "Cancel a booking",
		ArgsUsage: "BOOKING_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "Also cancel the booking on the reservation API",
			},
		},
		Action: cancelAction,
	}
}

func cancelAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a booking id is required")
	}

	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	// The remote cancel runs inside the local write so a refused DELETE
	// leaves the booking as it was.
	b, err := env.storage.CancelBookingWith(c.Context, id, time.Now(), env.cfg.Booking.CancelWindow, func(b booking.Booking) error {
		if !c.Bool("remote") || b.RemoteID == "" {
			return nil
		}
		return env.client.CancelBooking(c.Context, b.RemoteID)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, "Booking cancelled:")
	printBooking(c.App.Writer, b)
	return nil
}
