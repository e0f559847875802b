package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show the most searched locations",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of locations to show",
				Value: 10,
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	logs, err := env.storage.LocationLogs(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(c.App.Writer, "No searches yet.")
		return nil
	}

	for i, l := range logs {
		fmt.Fprintf(c.App.Writer, "%d. %.2f, %.2f  searches: %d, range: %g km, last: %s\n",
			i+1, l.Latitude, l.Longitude, l.SearchCount, l.Distance, l.LastSearch.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
