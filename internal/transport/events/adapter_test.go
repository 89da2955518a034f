package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/domain"
)

type fakeDispatcher struct {
	events []slackevents.EventsAPIEvent
	err    error
	panics bool
}

func (f *fakeDispatcher) Dispatch(_ context.Context, ev slackevents.EventsAPIEvent) error {
	if f.panics {
		panic("boom")
	}
	f.events = append(f.events, ev)
	return f.err
}

type fakeVerifier struct{ err error }

func (f fakeVerifier) Verify(http.Header, []byte) error { return f.err }

const mentionBody = `{
	"type": "event_callback",
	"team_id": "T1",
	"api_app_id": "A1",
	"event_id": "Ev1",
	"event": {
		"type": "app_mention",
		"user": "U1",
		"text": "<@UBOT> hello",
		"ts": "111.222",
		"channel": "C1",
		"event_ts": "111.222"
	}
}`

func post(body string) Request {
	return Request{Method: http.MethodPost, Headers: http.Header{}, Body: []byte(body)}
}

func decode(t *testing.T, resp Response) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(resp.Body, &m))
	return m
}

func assertCORS(t *testing.T, resp Response) {
	t.Helper()
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Equal(t, "POST, OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
}

func TestHandle_Options(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop(), WithVerifier(fakeVerifier{err: errors.New("never checked")}))

	resp := a.Handle(context.Background(), Request{Method: "OPTIONS", Headers: http.Header{}, Body: []byte("not json")})

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, resp.Body)
	assertCORS(t, resp)
	assert.Empty(t, d.events)
}

func TestHandle_URLVerification(t *testing.T) {
	a := NewAdapter(&fakeDispatcher{}, zap.NewNop())

	resp := a.Handle(context.Background(), post(`{"type":"url_verification","challenge":"abc123"}`))

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]any{"challenge": "abc123"}, decode(t, resp))
	assertCORS(t, resp)
}

func TestHandle_URLVerificationMissingChallenge(t *testing.T) {
	a := NewAdapter(&fakeDispatcher{}, zap.NewNop())

	resp := a.Handle(context.Background(), post(`{"type":"url_verification"}`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, decode(t, resp), "error")
	assertCORS(t, resp)
}

func TestHandle_MalformedJSON(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop())

	resp := a.Handle(context.Background(), post(`{"type":`))

	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Contains(t, decode(t, resp), "error")
	assertCORS(t, resp)
	assert.Empty(t, d.events)
}

func TestHandle_DispatchesMention(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop())

	resp := a.Handle(context.Background(), post(mentionBody))

	assert.Equal(t, http.StatusOK, resp.Status)
	assertCORS(t, resp)
	require.Len(t, d.events, 1)
	am, ok := d.events[0].InnerEvent.Data.(*slackevents.AppMentionEvent)
	require.True(t, ok)
	assert.Equal(t, "U1", am.User)
	assert.Equal(t, "C1", am.Channel)
}

func TestHandle_InvalidSignature(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop(), WithVerifier(fakeVerifier{err: domain.ErrInvalidSignature}))

	resp := a.Handle(context.Background(), post(mentionBody))

	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assertCORS(t, resp)
	assert.Empty(t, d.events)
}

func TestHandle_URLVerificationSkipsSignature(t *testing.T) {
	a := NewAdapter(&fakeDispatcher{}, zap.NewNop(), WithVerifier(fakeVerifier{err: domain.ErrInvalidSignature}))

	resp := a.Handle(context.Background(), post(`{"type":"url_verification","challenge":"c"}`))
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestHandle_IgnoreRetries(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop(), WithIgnoreRetries(true))

	req := post(mentionBody)
	req.Headers.Set(RetryHeader, "1")
	resp := a.Handle(context.Background(), req)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Empty(t, d.events)
}

func TestHandle_RetriesDispatchedByDefault(t *testing.T) {
	d := &fakeDispatcher{}
	a := NewAdapter(d, zap.NewNop())

	req := post(mentionBody)
	req.Headers.Set(RetryHeader, "1")
	a.Handle(context.Background(), req)

	assert.Len(t, d.events, 1)
}

func TestHandle_DispatchError(t *testing.T) {
	a := NewAdapter(&fakeDispatcher{err: errors.New("slack down")}, zap.NewNop())

	resp := a.Handle(context.Background(), post(mentionBody))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, map[string]any{"error": "internal error"}, decode(t, resp))
	assertCORS(t, resp)
}

func TestHandle_PanicBecomes500(t *testing.T) {
	a := NewAdapter(&fakeDispatcher{panics: true}, zap.NewNop())

	resp := a.Handle(context.Background(), post(mentionBody))

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.Equal(t, map[string]any{"error": "internal error"}, decode(t, resp))
}
