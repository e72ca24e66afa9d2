package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudbill/cloudbill/domain/scope"
	"github.com/cloudbill/cloudbill/domain/usage"
	"github.com/cloudbill/cloudbill/ports"
)

// authUserHeader carries the caller's user ID, set by the authenticating
// front proxy. It is the default scope when no selector is given.
const authUserHeader = "X-Auth-User"

// reportQuery is the parsed request contract shared by usage and costs.
type reportQuery struct {
	scope  scope.Scope
	window usage.Window
	detail bool
}

// GetUsage returns billable seconds per flavor for a scope and window.
// Flat mode returns {flavor: seconds}; detail mode returns the nested tree.
func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.reportContext(r.Context())
	defer cancel()

	done := h.observe("usage", q.scope.Level)
	rep, err := h.reporter.Consumption(ctx, q.scope, q.window)
	done(err)
	if err != nil {
		h.writeReportError(w, r, "usage", err)
		return
	}

	if q.detail {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep.Total)
}

// GetCosts returns the priced consumption for a scope and window.
// Flat mode returns {flavor: amount}; detail mode returns the nested tree.
func (h *Handler) GetCosts(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.reportContext(r.Context())
	defer cancel()

	done := h.observe("cost", q.scope.Level)
	rep, err := h.reporter.Cost(ctx, q.scope, q.window)
	done(err)
	if err != nil {
		h.writeReportError(w, r, "cost", err)
		return
	}

	if q.detail {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep.Flavors)
}

// GetFlavors lists the flavor catalog.
func (h *Handler) GetFlavors(w http.ResponseWriter, r *http.Request) {
	flavors, err := h.prices.FlavorCatalog(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("flavor catalog failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type flavorResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	out := make([]flavorResponse, 0, len(flavors))
	for _, f := range flavors {
		out = append(out, flavorResponse{ID: f.ID, Name: f.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// GetPrices lists all price records in ascending start order.
func (h *Handler) GetPrices(w http.ResponseWriter, r *http.Request) {
	records, err := h.prices.ListPrices(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("price listing failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	type priceResponse struct {
		FlavorID   string  `json:"flavor_id"`
		FlavorName string  `json:"flavor_name"`
		UserClass  int     `json:"user_class"`
		PerYear    float64 `json:"per_year"`
		ValidFrom  string  `json:"valid_from"`
	}
	out := make([]priceResponse, 0, len(records))
	for _, p := range records {
		out = append(out, priceResponse{
			FlavorID:   p.FlavorID,
			FlavorName: p.FlavorName,
			UserClass:  int(p.Class),
			PerYear:    p.PerYear,
			ValidFrom:  p.ValidFrom.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// parseQuery parses the selector, window, and detail flag.
func (h *Handler) parseQuery(r *http.Request) (reportQuery, error) {
	var q reportQuery

	qs := r.URL.Query()
	var selectors []scope.Scope
	if v := qs.Get("server"); v != "" {
		selectors = append(selectors, scope.Server(v))
	}
	if v := qs.Get("user"); v != "" {
		selectors = append(selectors, scope.User(v))
	}
	if v := qs.Get("project"); v != "" {
		selectors = append(selectors, scope.Project(v))
	}
	if v := qs.Get("all"); v == "true" || v == "1" {
		selectors = append(selectors, scope.All())
	}

	switch len(selectors) {
	case 0:
		// Default to the caller's own user.
		caller := r.Header.Get(authUserHeader)
		if caller == "" {
			return q, fmt.Errorf("no scope selected and no %s header", authUserHeader)
		}
		q.scope = scope.User(caller)
	case 1:
		q.scope = selectors[0]
	default:
		return q, errors.New("select exactly one of server, user, project, all")
	}

	now := h.clock.Now().UTC()
	q.window = usage.Window{
		Begin: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   now,
	}
	if v := qs.Get("begin"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid begin: expected RFC3339, got %q", v)
		}
		q.window.Begin = t
	}
	if v := qs.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, fmt.Errorf("invalid end: expected RFC3339, got %q", v)
		}
		q.window.End = t
	}
	if err := q.window.Validate(); err != nil {
		return q, err
	}

	q.detail = qs.Get("detail") == "true" || qs.Get("detail") == "1"
	return q, nil
}

func (h *Handler) reportContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(ctx, h.timeout)
	}
	return context.WithCancel(ctx)
}

// observe starts report instrumentation and returns the completion callback.
func (h *Handler) observe(kind string, level scope.Level) func(error) {
	if h.metrics == nil {
		return func(error) {}
	}

	h.metrics.ReportsInFlight.Inc()
	start := time.Now()
	return func(err error) {
		h.metrics.ReportsInFlight.Dec()
		h.metrics.ReportDuration.WithLabelValues(kind, level.String()).Observe(time.Since(start).Seconds())
		if err == nil {
			h.metrics.ReportsTotal.WithLabelValues(kind, level.String()).Inc()
		} else {
			h.metrics.ReportErrors.WithLabelValues(kind, errorReason(err)).Inc()
		}
	}
}

func (h *Handler) writeReportError(w http.ResponseWriter, r *http.Request, kind string, err error) {
	var verr usage.ValidationError

	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "report timed out")
	default:
		h.logger.Error().Err(err).Str("kind", kind).Str("path", r.URL.Path).Msg("report failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorReason(err error) string {
	var verr usage.ValidationError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}
