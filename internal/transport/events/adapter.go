// Package events adapts Slack Events API HTTP requests to the mention dispatcher,
// independent of whether they arrive via Lambda or an HTTP server.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/domain"
)

// RetryHeader is set by Slack on redelivered events.
const RetryHeader = "X-Slack-Retry-Num"

// Request is a transport-neutral inbound HTTP request.
type Request struct {
	Method  string
	Headers http.Header
	Body    []byte
}

// Response is a transport-neutral HTTP response.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Dispatcher handles a parsed Events API envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev slackevents.EventsAPIEvent) error
}

// Verifier checks request authenticity.
type Verifier interface {
	Verify(header http.Header, body []byte) error
}

// Adapter maps one request to one response.
type Adapter struct {
	dispatcher    Dispatcher
	verifier      Verifier
	ignoreRetries bool
	logger        *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithVerifier enables signature verification of event callbacks.
func WithVerifier(v Verifier) Option {
	return func(a *Adapter) { a.verifier = v }
}

// WithIgnoreRetries acknowledges redelivered events without handling them again.
func WithIgnoreRetries(ignore bool) Option {
	return func(a *Adapter) { a.ignoreRetries = ignore }
}

// NewAdapter creates an Adapter.
func NewAdapter(dispatcher Dispatcher, logger *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{dispatcher: dispatcher, logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type envelope struct {
	Type      string  `json:"type"`
	Challenge *string `json:"challenge"`
}

// Handle processes req. It never panics: any failure becomes a 500 response.
func (a *Adapter) Handle(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("panic recovered",
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			resp = errorResponse(http.StatusInternalServerError, "internal error")
		}
	}()

	if strings.EqualFold(req.Method, http.MethodOptions) {
		return Response{Status: http.StatusOK, Headers: CORSHeaders()}
	}

	var env envelope
	if err := json.Unmarshal(req.Body, &env); err != nil {
		return errorResponse(http.StatusBadRequest, "invalid JSON body")
	}

	if env.Type == slackevents.URLVerification {
		if env.Challenge == nil || *env.Challenge == "" {
			return errorResponse(http.StatusBadRequest, domain.ErrMissingChallenge.Error())
		}
		return jsonResponse(http.StatusOK, map[string]string{"challenge": *env.Challenge})
	}

	if a.verifier != nil {
		if err := a.verifier.Verify(req.Headers, req.Body); err != nil {
			a.logger.Warn("Rejected request", zap.Error(err))
			return errorResponse(http.StatusUnauthorized, domain.ErrInvalidSignature.Error())
		}
	}

	if a.ignoreRetries && req.Headers.Get(RetryHeader) != "" {
		a.logger.Info("Skipping Slack retry",
			zap.String("retry_num", req.Headers.Get(RetryHeader)),
			zap.String("retry_reason", req.Headers.Get("X-Slack-Retry-Reason")),
		)
		return jsonResponse(http.StatusOK, map[string]bool{"ok": true})
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(req.Body), slackevents.OptionNoVerifyToken())
	if err != nil {
		return errorResponse(http.StatusBadRequest, domain.ErrInvalidPayload.Error())
	}

	if err := a.dispatcher.Dispatch(ctx, ev); err != nil {
		a.logger.Error("Event dispatch failed", zap.Error(err))
		return errorResponse(http.StatusInternalServerError, "internal error")
	}

	return jsonResponse(http.StatusOK, map[string]bool{"ok": true})
}

// CORSHeaders returns the headers attached to every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
		"Access-Control-Allow-Headers": "content-type, x-slack-signature, x-slack-request-timestamp",
	}
}

func jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{Status: http.StatusInternalServerError, Headers: CORSHeaders(), Body: []byte(`{"error":"internal error"}`)}
	}
	return Response{Status: status, Headers: CORSHeaders(), Body: body}
}

func errorResponse(status int, msg string) Response {
	return jsonResponse(status, map[string]string{"error": msg})
}
