// Package httpapi exposes the JSON API. Routes live under /api/v1 with the
// Prometheus scrape endpoint at /metrics.
package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/lotterylab/lotterylab/internal/cache"
	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/metrics"
	"github.com/lotterylab/lotterylab/internal/services/analysis"
	"github.com/lotterylab/lotterylab/internal/services/draws"
	"github.com/lotterylab/lotterylab/internal/services/export"
	"github.com/lotterylab/lotterylab/internal/services/generator"
	"github.com/lotterylab/lotterylab/internal/services/ingestion"
	"github.com/lotterylab/lotterylab/pkg/logger"
)

// Endpoint defaults.
const (
	defaultLatestLimit     = 20
	defaultFrequencyWindow = 365
	defaultImportRunsLimit = 20
	healthCheckTimeout     = 2 * time.Second
)

// Services are the dependencies the handler serves. Ingestion may be nil
// when no feed is configured; the update endpoint then answers 503.
type Services struct {
	Draws     *draws.Service
	Analysis  *analysis.Service
	Generator *generator.Service
	Export    *export.Service
	Ingestion *ingestion.Service
}

// Handler is the HTTP API.
type Handler struct {
	services Services
	cache    *cache.Cache
	metrics  *metrics.Metrics
	log      *logger.Logger
	router   *mux.Router
	chain    http.Handler
	version  string
	dbCheck  func(context.Context) error
}

// Options tune the middleware stack and the health endpoint.
type Options struct {
	Cache              *cache.Cache
	Metrics            *metrics.Metrics
	RateLimitPerSecond float64
	RateLimitBurst     int
	CORSOrigins        []string
	Version            string
	// DBCheck reports database reachability for /health. nil means the
	// backing store needs no connectivity.
	DBCheck func(context.Context) error
}

// New builds the handler and its route table.
func New(services Services, opts Options, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	h := &Handler{
		services: services,
		cache:    opts.Cache,
		metrics:  opts.Metrics,
		log:      log,
		router:   mux.NewRouter(),
		version:  opts.Version,
		dbCheck:  opts.DBCheck,
	}
	h.routes(opts)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes(opts Options) {
	// The middleware chain wraps the router itself so CORS preflights are
	// answered even for method-restricted routes.
	h.chain = h.router
	if opts.RateLimitPerSecond > 0 {
		h.chain = rateLimitMiddleware(opts.RateLimitPerSecond, opts.RateLimitBurst)(h.chain)
	}
	h.chain = requestIDMiddleware(corsMiddleware(opts.CORSOrigins)(h.chain))

	if h.metrics != nil {
		h.router.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	api := h.router.PathPrefix("/api/v1").Subrouter()
	h.handle(api, "/health", h.handleHealth).Methods(http.MethodGet)

	h.handle(api, "/draws", h.handleListDraws).Methods(http.MethodGet)
	h.handle(api, "/draws/latest", h.handleLatestDraws).Methods(http.MethodGet)
	h.handle(api, "/draws/{number:[0-9]+}", h.handleGetDraw).Methods(http.MethodGet)

	h.handle(api, "/ingestion/runs", h.handleImportRuns).Methods(http.MethodGet)
	h.handle(api, "/ingestion/update", h.handleTriggerUpdate).Methods(http.MethodPost)

	h.handle(api, "/analysis/frequency", h.cached(h.handleFrequency)).Methods(http.MethodGet)
	h.handle(api, "/analysis/randomness", h.cached(h.handleRandomness)).Methods(http.MethodGet)
	h.handle(api, "/analysis/patterns", h.cached(h.handlePatterns)).Methods(http.MethodGet)
	h.handle(api, "/analysis/correlation", h.cached(h.handleCorrelation)).Methods(http.MethodGet)
	h.handle(api, "/analysis/clusters", h.cached(h.handleClusters)).Methods(http.MethodGet)
	h.handle(api, "/analysis/trends", h.cached(h.handleTrends)).Methods(http.MethodGet)
	h.handle(api, "/analysis/trends/chart", h.cached(h.handleTrendChart)).Methods(http.MethodGet)

	h.handle(api, "/generator", h.handleGenerate).Methods(http.MethodGet)
	h.handle(api, "/export/report", h.handleExport).Methods(http.MethodGet)
}

// handle registers a route, instrumented when metrics are enabled.
func (h *Handler) handle(router *mux.Router, path string, fn http.HandlerFunc) *mux.Route {
	var handler http.Handler = fn
	if h.metrics != nil {
		handler = h.metrics.InstrumentHandler("/api/v1"+path, handler)
	}
	return router.Handle(path, handler)
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// respondResult maps service errors onto HTTP statuses.
func (h *Handler) respondResult(w http.ResponseWriter, payload interface{}, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, payload)
	case errors.Is(err, analysis.ErrInsufficientData):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(r *http.Request, name string, fallback float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func queryBool(r *http.Request, name string, fallback bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// analysisQuery reads the shared analysis scope parameters. A bad date is
// reported to the client; ok is false then.
func (h *Handler) analysisQuery(w http.ResponseWriter, r *http.Request, defaultWindow int) (analysis.Query, bool) {
	q := analysis.Query{
		GameType:   r.URL.Query().Get("game_type"),
		Provider:   r.URL.Query().Get("game_provider"),
		WindowDays: queryInt(r, "window_days", defaultWindow),
	}
	if raw := r.URL.Query().Get("date_from"); raw != "" {
		date, err := draw.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date_from")
			return q, false
		}
		q.DateFrom = &date
	}
	if raw := r.URL.Query().Get("date_to"); raw != "" {
		date, err := draw.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date_to")
			return q, false
		}
		q.DateTo = &date
	}
	return q, true
}

// cached wraps an analysis handler with the Redis cache. Hits are replayed
// verbatim; misses record the handler's output under the request URI.
func (h *Handler) cached(fn http.HandlerFunc) http.HandlerFunc {
	if h.cache == nil {
		return fn
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := "httpapi:" + r.URL.RequestURI()
		if body, err := h.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "hit")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(body)
			return
		}

		recorder := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		fn(recorder, r)
		if recorder.status == http.StatusOK {
			if err := h.cache.Set(r.Context(), key, recorder.body.Bytes()); err != nil {
				h.log.WithError(err).Warn("failed to cache response")
			}
		}
	}
}

// --- endpoints --------------------------------------------------------------

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":   "ok",
		"version":  h.version,
		"database": "ok",
	}
	if h.dbCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := h.dbCheck(ctx); err != nil {
			h.log.WithError(err).Warn("database health check failed")
			resp["status"] = "degraded"
			resp["database"] = "unreachable"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListDraws(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := draw.Filter{
		GameType:     q.Get("game_type"),
		GameProvider: q.Get("game_provider"),
		Limit:        queryInt(r, "limit", 0),
		Offset:       queryInt(r, "offset", 0),
	}
	if raw := q.Get("date_from"); raw != "" {
		date, err := draw.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date_from")
			return
		}
		filter.DateFrom = &date
	}
	if raw := q.Get("date_to"); raw != "" {
		date, err := draw.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date_to")
			return
		}
		filter.DateTo = &date
	}

	page, err := h.services.Draws.List(r.Context(), filter)
	h.respondResult(w, page, err)
}

func (h *Handler) handleLatestDraws(w http.ResponseWriter, r *http.Request) {
	ds, err := h.services.Draws.Latest(r.Context(), queryInt(r, "limit", defaultLatestLimit))
	h.respondResult(w, map[string]interface{}{"draws": ds}, err)
}

func (h *Handler) handleGetDraw(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(mux.Vars(r)["number"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid draw number")
		return
	}
	d, err := h.services.Draws.Get(r.Context(), number)
	h.respondResult(w, d, err)
}

func (h *Handler) handleImportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.services.Draws.ImportHistory(r.Context(), queryInt(r, "limit", defaultImportRunsLimit))
	h.respondResult(w, map[string]interface{}{"runs": runs}, err)
}

func (h *Handler) handleTriggerUpdate(w http.ResponseWriter, r *http.Request) {
	if h.services.Ingestion == nil {
		writeError(w, http.StatusServiceUnavailable, "no feed source configured")
		return
	}
	stats, err := h.services.Ingestion.UpdateFromFeed(r.Context())
	if err != nil {
		h.log.WithError(err).Error("manual feed update failed")
		writeError(w, http.StatusBadGateway, "feed update failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleFrequency(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analysisQuery(w, r, defaultFrequencyWindow)
	if !ok {
		return
	}
	result, err := h.services.Analysis.Frequency(r.Context(), q)
	h.respondResult(w, result, err)
}

func (h *Handler) handleRandomness(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analysisQuery(w, r, 0)
	if !ok {
		return
	}
	result, err := h.services.Analysis.Randomness(r.Context(), q)
	h.respondResult(w, result, err)
}

func (h *Handler) handlePatterns(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analysisQuery(w, r, 0)
	if !ok {
		return
	}
	result, err := h.services.Analysis.Patterns(r.Context(), q)
	h.respondResult(w, result, err)
}

func (h *Handler) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analysisQuery(w, r, 0)
	if !ok {
		return
	}
	threshold := queryFloat(r, "min_correlation", 0)
	result, err := h.services.Analysis.Correlation(r.Context(), q, threshold)
	h.respondResult(w, result, err)
}

func (h *Handler) handleClusters(w http.ResponseWriter, r *http.Request) {
	q, ok := h.analysisQuery(w, r, 0)
	if !ok {
		return
	}
	result, err := h.services.Analysis.Clusters(r.Context(), q)
	h.respondResult(w, result, err)
}

func (h *Handler) trendParams(w http.ResponseWriter, r *http.Request) (analysis.Query, string, int, bool) {
	q, ok := h.analysisQuery(w, r, 0)
	if !ok {
		return q, "", 0, false
	}
	period := r.URL.Query().Get("period")
	if period == "" {
		period = analysis.PeriodMonth
	}
	if !analysis.ValidTrendPeriod(period) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported period %q", period))
		return q, "", 0, false
	}
	return q, period, queryInt(r, "num_periods", 0), true
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	q, period, numPeriods, ok := h.trendParams(w, r)
	if !ok {
		return
	}
	result, err := h.services.Analysis.Trends(r.Context(), q, period, numPeriods)
	h.respondResult(w, result, err)
}

func (h *Handler) handleTrendChart(w http.ResponseWriter, r *http.Request) {
	q, period, numPeriods, ok := h.trendParams(w, r)
	if !ok {
		return
	}
	var numbers []int
	if raw := r.URL.Query().Get("numbers"); raw != "" {
		parsed, err := draw.ParseNumbers(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid numbers")
			return
		}
		numbers = parsed
	}
	result, err := h.services.Analysis.TrendChart(r.Context(), q, period, numPeriods, numbers)
	if err != nil && !errors.Is(err, analysis.ErrInsufficientData) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondResult(w, result, err)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	result, err := h.services.Generator.Generate(r.Context(),
		r.URL.Query().Get("game_type"), queryInt(r, "count", 1))
	if err != nil && !errors.Is(err, analysis.ErrInsufficientData) && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.respondResult(w, result, err)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = export.FormatJSON
	}
	if format != export.FormatJSON && format != export.FormatCSV {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	opts := export.Options{
		GameType:   r.URL.Query().Get("game_type"),
		WindowDays: queryInt(r, "window_days", 0),
		Frequency:  queryBool(r, "include_frequency", true),
		Randomness: queryBool(r, "include_randomness", true),
		Patterns:   queryBool(r, "include_patterns", true),
		Latest:     queryBool(r, "include_draws", true),
	}
	rendered, err := h.services.Export.Export(r.Context(), opts, format)
	if err != nil {
		h.respondResult(w, nil, err)
		return
	}

	w.Header().Set("Content-Type", rendered.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Body)
}
