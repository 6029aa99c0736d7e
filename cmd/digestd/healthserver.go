package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"digestpipe/internal/observability/metrics"
)

// healthServer exposes /healthz and /metrics for one digestd process.
// Adapted from the teacher's internal/infra/worker.HealthServer and
// cmd/worker/metrics_server.go, collapsed into a single server: a batch
// run has no notification channels to report on, so there is nothing to
// split a liveness endpoint from a channel-health endpoint for.
type healthServer struct {
	addr   string
	log    *slog.Logger
	ready  atomic.Bool
	server *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

func newHealthServer(addr string, log *slog.Logger) *healthServer {
	return &healthServer{addr: addr, log: log}
}

// SetReady sets the flag /healthz reports. A one-shot run holds it true
// while the run executes. Under --cron it is true while the scheduler waits
// between firings and false while a scheduled run executes, so a run that
// never returns shows up as not ready.
func (h *healthServer) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Start blocks serving /healthz and /metrics until ctx is canceled, then
// shuts down gracefully within 5 seconds.
func (h *healthServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())

	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		h.log.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.log.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil
	case err := <-errCh:
		h.log.Error("health server failed", slog.Any("error", err))
		return err
	}
}

func (h *healthServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "application/json")

	status := "ok"
	code := http.StatusOK
	if !h.ready.Load() {
		status = "idle"
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)
	body := healthResponse{Status: status}
	_ = json.NewEncoder(w).Encode(body)

	metrics.RecordHTTPRequest(r.Method, "/healthz", http.StatusText(code), time.Since(start), 0, 0)
}
