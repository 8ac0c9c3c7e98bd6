package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/lattice/internal/api"
	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/store"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		configPath  string
		noLedger    bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the image and result-decoding HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "deployment file supplying default clock, seed and jitter geometry",
				Destination: &configPath,
			},
			&cli.BoolFlag{
				Name:        "no-ledger",
				Usage:       "do not expose the ledger",
				Destination: &noLedger,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if userCfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = userCfg.ServerAddress
			}

			defaults := config.Default()
			if configPath != "" {
				d, err := config.Load(configPath)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				defaults = d
			}

			var ledger *store.Store
			if !noLedger {
				l, err := openLedger()
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				defer l.Close()
				ledger = l
			}

			server := api.NewServer(ledger, defaults, log)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
