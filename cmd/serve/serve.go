// Package serve provides the HTTP API command.
package serve

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"anpr-client/internal/container"
	httpapi "anpr-client/internal/http"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command.
func Command(opts *container.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the history API for the browser front end",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
}

func run(ctx context.Context, opts *container.Options) error {
	app, err := container.Build(ctx, *opts)
	if err != nil {
		return err
	}
	defer app.Close()

	cfg := app.Config
	handler := httpapi.NewHandler(app.DetectionService, app.Log)
	router := httpapi.NewRouter(handler, cfg.Server.Mode, cfg.Server.CORSOrigins, app.Log)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Log.Info().
			Str("addr", srv.Addr).
			Str("detector", cfg.Detector.URL).
			Str("storage", cfg.Storage.Driver).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.Log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
