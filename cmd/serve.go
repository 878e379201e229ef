package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/snapstudio/snapstudio/internal/classify"
	"github.com/snapstudio/snapstudio/internal/config"
	"github.com/snapstudio/snapstudio/internal/handlers"
	"github.com/snapstudio/snapstudio/internal/images"
	"github.com/snapstudio/snapstudio/internal/imagetool"
	"github.com/snapstudio/snapstudio/internal/metrics"
	"github.com/snapstudio/snapstudio/internal/providers/registry"
	"github.com/snapstudio/snapstudio/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the classification and image tool API",
		Long: `Starts the HTTP API on the configured port.

Endpoints:
  POST /api/classify-images   categorize a batch of product thumbnails
  POST /api/image-tools       run an AI image edit
  GET  /metrics               Prometheus metrics
  GET  /healthcheck           liveness probe`,
		Example: `  # Start server on PORT (default 8888)
  snapstudio serve

  # Start server on custom port
  snapstudio serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			fetcher := images.NewFetcher()
			classifyProvider, err := registry.ForClassification(cfg, fetcher)
			if err != nil {
				return err
			}
			editProvider, err := registry.ForEditing(cfg, fetcher)
			if err != nil {
				return err
			}

			cache, err := storage.New(cfg)
			if err != nil {
				return err
			}
			if cache != nil {
				defer cache.Close()
			}

			collector := metrics.NewCollector()
			classifier := classify.NewService(classifyProvider, cfg.ClassifyModel,
				classify.WithCache(cache, cfg.CacheTTL),
				classify.WithMetrics(collector),
				classify.WithTimeout(cfg.UpstreamTimeout))
			tools := imagetool.NewDispatcher(editProvider, cfg.EditModel, cfg.UpstreamTimeout, collector)

			handler := handlers.New(classifier, tools, collector, cfg.MaxBodyBytes)

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Snapstudio API available",
					"addr", addr,
					"url", "http://localhost"+addr,
					"classify_provider", classifyProvider.Name(),
					"edit_provider", editProvider.Name(),
					"cache", cfg.CacheBackend)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// in-flight edits can take a while, wait up to 30s
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides PORT)")

	return cmd
}
