package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/config"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/health"
	middleware "github.com/carlosGalisteo/catastro-mcp-server/internal/core/middleware"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/mcp"
)

// Router mounts the MCP endpoint next to health and metrics.
func Router(logger *slog.Logger, h *mcp.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(h))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Post("/mcp", mcp.HTTPHandler(h, logger))
	return r
}

// Run serves the HTTP transport on cfg.Addr until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h *mcp.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Router(logger, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.ToolTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, srv, logger)
}

// RunMetrics exposes /metrics and /healthz alone, for the stdio transport.
func RunMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Get("/healthz", health.Liveness())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return serve(ctx, srv, logger)
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
