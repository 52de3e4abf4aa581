package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/amp-labs/simulation/runner"
	"github.com/amp-labs/simulation/should"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	serverStopTimeout = 5 * time.Second
)

type health struct {
	Status   string `json:"status"`
	Running  int64  `json:"running"`
	Finished int64  `json:"finished"`
	Fatal    int64  `json:"fatal"`
}

// newMetricsRouter exposes the Prometheus registry and a health summary of the running instances.
func newMetricsRouter(stats *runner.Stats) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		_ = json.NewEncoder(w).Encode(health{
			Status:   "ok",
			Running:  stats.Running.Load(),
			Finished: stats.Finished.Load(),
			Fatal:    stats.Fatal.Load(),
		})
	})

	return r
}

// serveMetrics starts the metrics server in the background and returns a function stopping it.
func serveMetrics(addr string, stats *runner.Stats) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           newMetricsRouter(stats),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		slog.Info("Serving metrics", "addr", addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "addr", addr, "error", err)
		}
	}()

	return func() {
		should.ShutdownWithin(serverStopTimeout, server.Shutdown, "Metrics server did not stop cleanly", "addr", addr)
	}
}
