package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
)

func slotsCommand() *cli.Command {
	return &cli.Command{
		Name:  "slots",
		Usage: "List the bookable time slots for a date",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Date (YYYY-MM-DD)",
				Value: time.Now().Format(booking.DateLayout),
			},
		},
		Action: slotsAction,
	}
}

func slotsAction(c *cli.Context) error {
	date := c.String("date")
	if _, err := time.Parse(booking.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	slots := booking.TimeSlots(date, time.Now())
	if len(slots) == 0 {
		fmt.Fprintf(c.App.Writer, "No slots left on %s.\n", date)
		return nil
	}
	fmt.Fprintf(c.App.Writer, "Slots on %s:\n%s\n", date, strings.Join(slots, " "))
	return nil
}
