package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "evcharger",
		Usage: "Find, rank and book EV charging stations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Configuration file",
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "Reservation API base URL (overrides the config file)",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "API bearer token",
				EnvVars: []string{config.EnvToken},
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			stationsCommand(),
			slotsCommand(),
			bookCommand(),
			bookingsCommand(),
			cancelCommand(),
			reviewCommand(),
			vehicleCommand(),
			payCommand(),
			historyCommand(),
			serveCommand(),
		},
	}
}
