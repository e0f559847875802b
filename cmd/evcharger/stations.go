package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/export"
	"github.com/rubiojr/evcharger/internal/locate"
	"github.com/rubiojr/evcharger/internal/refresh"
	"github.com/rubiojr/evcharger/pkg/station"
)

func stationsCommand() *cli.Command {
	flags := append(locationFlags(), filterFlags()...)
	flags = append(flags,
		&cli.BoolFlag{
			Name:  "recommended",
			Usage: "Only list reachable stations with free slots",
		},
		&cli.StringFlag{
			Name:  "gpx",
			Usage: "Also write the ranked stations to a GPX file",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "Refresh the list periodically",
		},
	)

	return &cli.Command{
		Name:   "stations",
		Usage:  "List charging stations ranked by availability and distance",
		Flags:  flags,
		Action: stationsAction,
	}
}

func stationsAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	filter, err := parseFilter(c)
	if err != nil {
		return err
	}
	pos, source, err := env.resolvePosition(c)
	if err != nil {
		return err
	}
	params := refresh.Params{Position: pos, Range: env.userRange(c), Filter: filter}

	if err := env.storage.LogSearchLocation(c.Context, pos.Lat, pos.Lng, params.Range); err != nil {
		env.log.Error("Failed to log search location", "error", err)
	}

	refresher := refresh.New(env.client, env.log)
	show := func(ctx context.Context) {
		res, err := refresher.Trigger(ctx, params)
		if err != nil || !res.Applied {
			return
		}
		if res.Err != nil {
			fmt.Fprintf(c.App.ErrWriter, "Error fetching stations: %v\n", res.Err)
		}
		list := res.Stations
		if c.Bool("recommended") {
			list = res.Recommended
		}
		printStations(c.App.Writer, list, pos, source, params.Range)

		if path := c.String("gpx"); path != "" {
			if err := writeGPX(path, list, pos); err != nil {
				fmt.Fprintf(c.App.ErrWriter, "Error: %v\n", err)
			}
		}
	}

	if !c.Bool("watch") {
		show(c.Context)
		return nil
	}

	ctx, stop := signalContext(c.Context)
	defer stop()
	refresh.Poll(ctx, env.cfg.Poll.Interval, show)
	return nil
}

func writeGPX(path string, ranked []station.Ranked, user station.Position) error {
	data, err := export.GPX(ranked, user)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

func printStations(w io.Writer, ranked []station.Ranked, pos station.Position, source locate.Source, userRange float64) {
	rangeStr := "unlimited range"
	if userRange > 0 {
		rangeStr = fmt.Sprintf("%g km range", userRange)
	}
	fmt.Fprintf(w, "Stations near %s (%s, %s), %s\n\n", pos, source, rangeStr, time.Now().Format("15:04:05"))

	for i, s := range ranked {
		fmt.Fprintf(w, "%d. %s (%s)\n", i+1, s.Name, s.Address)
		fmt.Fprintf(w, "   ID: %d\n", s.ID)
		fmt.Fprintf(w, "   Distance: %d km, %s\n", s.DistanceKm, s.Priority)
		fmt.Fprintf(w, "   Slots: %d/%d available\n", s.AvailableSlots, s.TotalSlots)
		fmt.Fprintf(w, "   Connectors: %s\n", connectors(s.Record))
		fmt.Fprintf(w, "   Price: ₹%.2f/kWh\n", s.PricePerKwh)
		if s.Status != "" {
			fmt.Fprintf(w, "   Status: %s\n", s.Status)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Found %d stations\n", len(ranked))
}

func connectors(r station.Record) string {
	if len(r.ConnectorTypes) == 0 {
		return station.DefaultConnector
	}
	return strings.Join(r.ConnectorTypes, ", ")
}
