package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/arloliu/go-ezo/sink"
)

// newHTTPHandler routes the daemon endpoints:
//
//	GET /healthz           liveness and configured device count
//	GET /metrics           Prometheus exposition of reg
//	GET /readings          latest reading per device field, ?device= filters
//	GET /readings/stream   websocket stream of readings, ?device= filters
//
// Cross-origin requests are allowed only from cfg.CORSOrigins.
func newHTTPHandler(cfg HTTPConfig, devices int, reg *prometheus.Registry, store *sink.Store, stream *sink.Stream) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /healthz", healthz(devices))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("GET /readings", store.Handler())
	mux.Handle("GET /readings/stream", stream.Handler())

	if len(cfg.CORSOrigins) == 0 {
		return mux
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})

	return c.Handler(mux)
}

func healthz(devices int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"devices": devices,
		})
	}
}
