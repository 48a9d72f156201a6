// Package server exposes the read-only status endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glidepath/glidepath/internal/executor"
	"github.com/glidepath/glidepath/internal/graph"
)

// HealthSource reads current node health without mutating anything.
type HealthSource interface {
	Health(ctx context.Context, stages ...graph.Stage) []executor.NodeHealth
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Environment string                `json:"environment"`
	CheckedAt   time.Time             `json:"checked_at"`
	Nodes       []executor.NodeHealth `json:"nodes"`
}

// NewRouter creates a chi router serving the status of one environment.
func NewRouter(environment string, source HealthSource, stages []graph.Stage, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","component":"glidepath"}`)
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		resp := StatusResponse{
			Environment: environment,
			CheckedAt:   time.Now().UTC(),
			Nodes:       source.Health(req.Context(), stages...),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error("failed to encode status response", "error", err)
		}
	})

	return r
}

// Serve runs the status server until ctx is canceled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("status server listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
