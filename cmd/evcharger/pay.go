package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/booking"
)

func payCommand() *cli.Command {
	return &cli.Command{
		Name:      "pay",
		Usage:     "Create a payment order for a booking",
		ArgsUsage: "BOOKING_ID",
		Action:    payAction,
	}
}

func payAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a booking id is required")
	}

	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	b, err := env.storage.Booking(c.Context, id)
	if err != nil {
		return err
	}
	if b.Status == booking.StatusCancelled {
		return booking.ErrCancelled
	}

	order, err := env.client.CreatePaymentOrder(c.Context, b.Amount)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "Payment order %s created\n", order.ID)
	fmt.Fprintf(c.App.Writer, "   Amount: ₹%.2f (%d %s)\n", b.Amount, order.Amount, order.Currency)
	return nil
}
