package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/pkg/api"
)

func reviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Review a station, or list its reviews",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "station",
				Aliases:  []string{"s"},
				Usage:    "Station ID",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "rating",
				Usage: "Rating from 1 to 5",
			},
			&cli.StringFlag{
				Name:  "comment",
				Usage: "Review text",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "List the station reviews instead of submitting one",
			},
		},
		Action: reviewAction,
	}
}

func reviewAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	stationID := c.Int64("station")
	if c.Bool("list") {
		reviews, err := env.client.StationReviews(c.Context, stationID)
		if err != nil {
			return err
		}
		if len(reviews) == 0 {
			fmt.Fprintln(c.App.Writer, "No reviews yet.")
			return nil
		}
		for _, r := range reviews {
			fmt.Fprintf(c.App.Writer, "%d/5  %s\n", r.Rating, r.Comment)
		}
		return nil
	}

	err = env.client.SubmitReview(c.Context, api.ReviewRequest{
		StationID: stationID,
		Rating:    c.Int("rating"),
		Comment:   c.String("comment"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Review submitted.")
	return nil
}
