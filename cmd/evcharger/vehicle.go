package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
	"github.com/rubiojr/evcharger/internal/evdb"
)

func vehicleCommand() *cli.Command {
	return &cli.Command{
		Name:  "vehicle",
		Usage: "Manage the saved vehicle profile",
		Subcommands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Save the vehicle profile",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "brand",
						Usage:    "Vehicle brand",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Vehicle model",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     "range",
						Usage:    "Range in kilometers",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "connector",
						Usage: "Connector type",
					},
				},
				Action: vehicleSetAction,
			},
			{
				Name:   "show",
				Usage:  "Show the saved vehicle profile",
				Action: vehicleShowAction,
			},
		},
	}
}

func vehicleSetAction(c *cli.Context) error {
	if c.Float64("range") < 0 {
		return errors.New("range can't be negative")
	}

	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	v := booking.Vehicle{
		Brand:     c.String("brand"),
		Model:     c.String("model"),
		RangeKm:   c.Float64("range"),
		Connector: strings.ToLower(c.String("connector")),
	}
	if err := env.storage.SaveVehicle(c.Context, v); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Vehicle saved.")
	return nil
}

func vehicleShowAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	v, err := env.storage.Vehicle(c.Context)
	if errors.Is(err, evdb.ErrNotFound) {
		fmt.Fprintln(c.App.Writer, "No vehicle saved.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s %s\n", v.Brand, v.Model)
	fmt.Fprintf(c.App.Writer, "   Range: %g km\n", v.RangeKm)
	if v.Connector != "" {
		fmt.Fprintf(c.App.Writer, "   Connector: %s\n", v.Connector)
	}
	return nil
}
