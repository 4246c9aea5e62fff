package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/chatflow/internal/cli"
	httpAdapter "github.com/aretw0/chatflow/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the chatflow engine as a JSON API over HTTP. Conversations are started
with POST /templates/{id}/sessions and answered with POST /sessions/{id}/resume;
GET /sessions/{id}/events streams session changes as server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, cfg, logger, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		opts := []httpAdapter.Option{httpAdapter.WithLogger(logger)}
		if cfg.Server.Metrics {
			opts = append(opts, httpAdapter.WithMetrics(stack.Metrics.Handler()))
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           httpAdapter.NewHandler(stack.Engine, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting chatflow server", "address", srv.Addr, "templates", cfg.Templates.Dir, "sessions", cfg.Sessions.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-sigCtx.Done():
			logger.Info("Start shutdown", "signal", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("chatflow server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
}
