// Package server exposes the emissions calculator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rshade/cofire-emissions/internal/emissions"
	"github.com/rshade/cofire-emissions/internal/report"
	"github.com/rshade/cofire-emissions/internal/scenario"
)

// RequestIDHeader carries the request correlation ID.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds scenario request bodies.
const maxBodyBytes = 1 << 20

const shutdownTimeout = 10 * time.Second

// Config holds HTTP server settings.
type Config struct {
	ListenAddr  string
	ReadTimeout time.Duration
}

// Server serves the calculator API.
type Server struct {
	calc    emissions.ScenarioCalculator
	logger  zerolog.Logger
	cfg     Config
	metrics *metrics
	handler http.Handler
}

// New creates a Server. Metrics are registered on a private registry
// exposed at /metrics.
func New(calc emissions.ScenarioCalculator, cfg Config, logger zerolog.Logger) *Server {
	s := &Server{
		calc:    calc,
		logger:  logger,
		cfg:     cfg,
		metrics: newMetrics(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/factors", s.handleFactors)
	mux.HandleFunc("POST /v1/calculate", s.handleCalculate)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	s.handler = s.withRequestID(mux)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("starting emissions API")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("shutdown failed")
		return err
	}
	s.logger.Info().Msg("emissions API stopped")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

type ctxKey struct{}

// requestID returns the correlation ID attached by withRequestID.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// withRequestID propagates the incoming X-Request-ID or generates a UUID,
// echoes it on the response and logs each request.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))

		s.logger.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := io.WriteString(w, "ok"); err != nil {
		s.logger.Error().Err(err).Msg("failed to write health response")
	}
}

func (s *Server) handleFactors(w http.ResponseWriter, r *http.Request) {
	body := struct {
		Factors []report.FactorEntry `json:"factors"`
	}{report.FactorEntries(s.calc.EmissionFactors())}
	s.writeJSON(w, r, http.StatusOK, body)
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Context())

	doc, err := scenario.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), scenario.FormatJSON)
	if err != nil {
		s.metrics.observe(outcomeBadRequest)
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	in, err := doc.Input()
	if err != nil {
		s.metrics.observe(outcomeInvalid)
		s.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}

	start := time.Now()
	result, err := s.calc.Calculate(in)
	if err != nil {
		if errors.Is(err, emissions.ErrInvalidRange) || errors.Is(err, emissions.ErrUnknownPollutant) {
			s.metrics.observe(outcomeInvalid)
			s.writeError(w, r, http.StatusUnprocessableEntity, err)
			return
		}
		s.metrics.observe(outcomeError)
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.metrics.observeDuration(time.Since(start))
	s.metrics.observe(outcomeOK)

	s.logger.Info().
		Str("request_id", id).
		Float64("coal_consumption", in.CoalConsumption).
		Float64("biogas_fraction", in.BiogasFraction).
		Float64("esp_efficiency", in.ESPEfficiency).
		Float64("fgd_efficiency", in.FGDEfficiency).
		Msg("scenario calculated")

	s.writeJSON(w, r, http.StatusOK, report.ScenarioReport{
		Scenario:       scenario.FromInput(in),
		ScenarioResult: result,
	})
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	id := requestID(r.Context())
	s.logger.Warn().
		Str("request_id", id).
		Int("status", status).
		Err(err).
		Msg("request failed")
	s.writeJSON(w, r, status, errorResponse{Error: err.Error(), RequestID: id})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Str("request_id", requestID(r.Context())).Err(err).Msg("failed to encode response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}

// Outcome labels for cofire_calculations_total.
const (
	outcomeOK         = "ok"
	outcomeInvalid    = "invalid"
	outcomeBadRequest = "bad_request"
	outcomeError      = "error"
)

type metrics struct {
	registry     *prometheus.Registry
	calculations *prometheus.CounterVec
	duration     prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cofire_calculations_total",
			Help: "Scenario calculations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cofire_calculation_duration_seconds",
			Help:    "Time spent in successful scenario calculations.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 8),
		}),
	}
	m.registry.MustRegister(m.calculations, m.duration)
	return m
}

func (m *metrics) observe(outcome string) {
	m.calculations.WithLabelValues(outcome).Inc()
}

func (m *metrics) observeDuration(d time.Duration) {
	m.duration.Observe(d.Seconds())
}
