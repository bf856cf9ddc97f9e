package snip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.followtheprocess.codes/msg"
	"go.followtheprocess.codes/snip/internal/server"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout is how long in flight API requests get to finish on shutdown.
const shutdownTimeout = 5 * time.Second

// ServeOptions are the options passed to the serve subcommand.
type ServeOptions struct {
	// Config is the path to the config file, empty means the default location.
	Config string

	// Addr is the address to listen on.
	Addr string

	// Debug enables debug logging.
	Debug bool
}

// Serve implements the serve subcommand, running the HTTP API until ctx is cancelled.
func (s Snip) Serve(ctx context.Context, options ServeOptions) error {
	logger := s.logger.Prefixed("serve")

	cfg, err := s.loadConfig(logger, options.Config)
	if err != nil {
		return err
	}

	db, err := s.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	api, err := server.New(s.logger, server.Config{
		Registry: s.registry,
		Settings: db,
		Creator:  s.creator(cfg),
		Addr:     options.Addr,
	})
	if err != nil {
		return err
	}

	srv := api.HTTPServer()

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", srv.Addr, err)
	}

	msg.Fsuccess(s.stdout, "Serving on http://%s", listener.Addr())

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-ctx.Done()

		logger.Debug("Shutting down", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
