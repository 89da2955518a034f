package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/domain"
	evadapter "github.com/kailas-cloud/geminibot/internal/transport/events"
	healthuc "github.com/kailas-cloud/geminibot/internal/usecase/health"
	usageuc "github.com/kailas-cloud/geminibot/internal/usecase/usage"
)

// maxEventBody caps Events API payloads. Slack events are a few KB.
const maxEventBody = 1 << 20

// Error codes returned in errorResponse.Code.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeUnavailable  = "quota_store_unavailable"
	codeInternal     = "internal_error"
)

// EventsHandler maps one Events API request to a response.
type EventsHandler interface {
	Handle(ctx context.Context, req evadapter.Request) evadapter.Response
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type usageResponse struct {
	Date        string    `json:"date"`
	Used        int64     `json:"used"`
	Limit       int64     `json:"limit"`
	Remaining   int64     `json:"remaining"`
	IsExhausted bool      `json:"is_exhausted"`
	ResetsAt    time.Time `json:"resets_at"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server exposes the Events API endpoint and operational routes.
type Server struct {
	events EventsHandler
	usage  *usageuc.Service
	health *healthuc.Service
	logger *zap.Logger
}

// NewServer creates an HTTP server.
func NewServer(
	events EventsHandler,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		events: events,
		usage:  usage,
		health: health,
		logger: logger,
	}
}

// Routes mounts the server's handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/slack/events", s.SlackEvents)
	r.Options("/slack/events", s.SlackEvents)
	r.Get("/health", s.HealthCheck)
	r.Get("/usage", s.GetUsage)
	r.Get("/metrics", s.Metrics)
}

// SlackEvents handles POST and OPTIONS /slack/events.
func (s *Server) SlackEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp := s.events.Handle(r.Context(), evadapter.Request{
		Method:  r.Method,
		Headers: r.Header,
		Body:    body,
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	report, err := s.usage.GetReport(r.Context())
	if err != nil {
		s.logger.Error("Usage report failed", zap.Error(err))
		if errors.Is(err, domain.ErrQuotaStore) {
			writeError(w, http.StatusServiceUnavailable, codeUnavailable, domain.ErrQuotaStore.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	b := report.Budget()
	writeJSON(w, http.StatusOK, usageResponse{
		Date:        report.Date(),
		Used:        report.Used(),
		Limit:       b.Limit(),
		Remaining:   b.Remaining(),
		IsExhausted: b.IsExhausted(),
		ResetsAt:    time.Unix(b.ResetsAt(), 0).UTC(),
	})
}

// HealthCheck handles GET /health. A degraded quota store still answers 200:
// the bot keeps replying with the gate failing open.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
