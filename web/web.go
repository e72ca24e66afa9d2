// Package web provides the JSON reporting API.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cloudbill/cloudbill/adapters/metrics"
	"github.com/cloudbill/cloudbill/app"
	"github.com/cloudbill/cloudbill/ports"
)

// Handler provides the reporting API endpoints.
type Handler struct {
	reporter    *app.Reporter
	usage       ports.UsageStore
	prices      ports.PriceStore
	clock       ports.Clock
	metrics     *metrics.Collector
	logger      zerolog.Logger
	timeout     time.Duration
	metricsPath string
}

// Deps contains dependencies for the web handler.
type Deps struct {
	Reporter    *app.Reporter
	Usage       ports.UsageStore
	Prices      ports.PriceStore
	Clock       ports.Clock
	Metrics     *metrics.Collector // optional, enables /metrics
	Logger      zerolog.Logger
	Timeout     time.Duration // per-report cap, zero for none
	MetricsPath string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	path := deps.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	return &Handler{
		reporter:    deps.Reporter,
		usage:       deps.Usage,
		prices:      deps.Prices,
		clock:       deps.Clock,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		timeout:     deps.Timeout,
		metricsPath: path,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.Health)
	if h.metrics != nil {
		r.Handle(h.metricsPath, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/usage", h.GetUsage)
		r.Get("/costs", h.GetCosts)
		r.Get("/flavors", h.GetFlavors)
		r.Get("/prices", h.GetPrices)
		r.Post("/intervals", h.PostIntervals)
	})

	return r
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		h.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
