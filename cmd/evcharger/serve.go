package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/urfave/cli/v2"

	"github.com/rubiojr/evcharger/internal/refresh"
	"github.com/rubiojr/evcharger/internal/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the ranked station list as JSON",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "HTTP server port (overrides the config file)",
			},
			&cli.Float64Flag{
				Name:  "range",
				Usage: "Default range in kilometers when a request has none",
			},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	env, err := newEnv(c)
	if err != nil {
		return err
	}
	defer env.Close()

	logLevel := slog.LevelInfo
	if c.Bool("debug") {
		logLevel = slog.LevelDebug
	}
	logger := httplog.NewLogger("evcharger", httplog.Options{
		JSON:            false,
		LogLevel:        logLevel,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})
	env.log = logger.Logger

	port := env.cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}
	defaultRange := env.userRange(c)

	srv := server.New(server.Options{
		Refresher:          refresh.New(env.client, logger.Logger),
		Locator:            env.locator(),
		Searches:           env.storage,
		Logger:             logger,
		RateLimitPerMinute: env.cfg.Server.RateLimitPerMinute,
		DefaultRange:       defaultRange,
	})

	ctx, stop := signalContext(c.Context)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	return srv.ListenAndServe(ctx, addr)
}
