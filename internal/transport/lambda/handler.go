// Package lambda serves the events adapter behind an AWS Lambda function URL.
package lambda

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/logger"
	evadapter "github.com/kailas-cloud/geminibot/internal/transport/events"
)

// Adapter handles one transport-neutral request.
type Adapter interface {
	Handle(ctx context.Context, req evadapter.Request) evadapter.Response
}

// Handler converts function URL events to adapter requests.
type Handler struct {
	adapter Adapter
	logger  *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(adapter Adapter, logger *zap.Logger) *Handler {
	return &Handler{adapter: adapter, logger: logger}
}

// Start blocks serving invocations. It does not return.
func Start(h *Handler) {
	awslambda.Start(h.Invoke)
}

// Invoke handles one function URL invocation. Errors are always expressed as
// HTTP responses so the runtime never reports a failed invocation.
func (h *Handler) Invoke(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	start := time.Now()
	requestID := requestID(ctx, req)
	method := req.RequestContext.HTTP.Method

	log := h.logger.With(zap.String("request_id", requestID))
	ctx = logger.ContextWithLogger(ctx, log)

	var resp evadapter.Response
	body, err := decodeBody(req)
	if err != nil {
		resp = evadapter.Response{
			Status:  http.StatusBadRequest,
			Headers: evadapter.CORSHeaders(),
			Body:    []byte(`{"error":"invalid base64 body"}`),
		}
	} else {
		headers := make(http.Header, len(req.Headers))
		for k, v := range req.Headers {
			headers.Set(k, v)
		}
		resp = h.adapter.Handle(ctx, evadapter.Request{Method: method, Headers: headers, Body: body})
	}

	fields := []zap.Field{
		zap.String("method", method),
		zap.String("path", req.RawPath),
		zap.Int("status", resp.Status),
		zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
	}
	switch {
	case resp.Status >= http.StatusInternalServerError:
		log.Error("request", fields...)
	case resp.Status >= http.StatusBadRequest:
		log.Warn("request", fields...)
	default:
		log.Info("request", fields...)
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: resp.Status,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}, nil
}

func requestID(ctx context.Context, req events.LambdaFunctionURLRequest) string {
	if req.RequestContext.RequestID != "" {
		return req.RequestContext.RequestID
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}

func decodeBody(req events.LambdaFunctionURLRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	return base64.StdEncoding.DecodeString(req.Body)
}
