package main

import (
	"context"

	"github.com/desertthunder/tidalx/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	sync, store, err := r.syncer()
	if err != nil {
		return err
	}
	tidal, err := r.tidalClient()
	if err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}
	if dir := cmd.String("static"); dir != "" {
		cfg.StaticDir = dir
	}

	logger := r.logger.With("component", "http")
	api := server.NewAPI(tidal, sync, store.Albums, store.Credentials, cfg, logger)
	router := server.NewRouter(api, cfg, logger)

	r.writePlain("→ Serving on http://%s (Ctrl+C to stop)\n", cfg.Addr())
	return server.Run(ctx, server.NewHTTPServer(cfg.Addr(), router), logger)
}
