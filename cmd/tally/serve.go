package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/tally/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves calculator sessions over HTTP: JSON commands, Server-Sent Events
and a WebSocket per session. The OpenAPI document is at /openapi.yaml.

Sessions live in memory unless redis.url is set, in which case several
instances can share them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd, false)
		if err != nil {
			return err
		}
		defer svc.Close()

		opts := []httpAdapter.Option{httpAdapter.WithLogger(svc.Logger)}
		if svc.Metrics != nil {
			opts = append(opts, httpAdapter.WithMetricsHandler(svc.Metrics.Handler()))
		}
		handler, err := httpAdapter.NewServer(svc.Manager, svc.Engine, opts...)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              svc.Config.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			svc.Logger.Info("tally server listening",
				"addr", srv.Addr,
				"shared_sessions", svc.Shared(),
				"metrics", svc.Metrics != nil,
			)
			serverErrors <- srv.ListenAndServe()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			svc.Logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				svc.Logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("could not stop server: %w", err)
				}
			}
			svc.Logger.Info("tally server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics at /metrics (overrides server.metrics)")
}
