package slack

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dommention "github.com/kailas-cloud/geminibot/internal/domain/mention"
	mentionuc "github.com/kailas-cloud/geminibot/internal/usecase/mention"
)

// fakeSlack records chat.postMessage calls.
type fakeSlack struct {
	mu    sync.Mutex
	posts []url.Values
	fail  bool
}

func (f *fakeSlack) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat.postMessage":
			f.mu.Lock()
			f.posts = append(f.posts, r.PostForm)
			f.mu.Unlock()
			if f.fail {
				_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"channel":"C1","ts":"999.000"}`))
		case "/auth.test":
			if f.fail {
				_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
				return
			}
			_, _ = w.Write([]byte(`{"ok":true,"user_id":"UBOT","team":"T"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

func newTestClient(t *testing.T, f *fakeSlack) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
}

type recordingHandler struct {
	events []dommention.Event
	err    error
}

func (h *recordingHandler) Handle(ctx context.Context, ev dommention.Event, r mentionuc.Replier) (mentionuc.Outcome, error) {
	h.events = append(h.events, ev)
	if h.err != nil {
		return "", h.err
	}
	return mentionuc.OutcomeGenerated, r.PostText(ctx, ev.Thread(), "done")
}

func appMention(threadTS string) slackevents.EventsAPIEvent {
	return slackevents.EventsAPIEvent{
		Type: slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "app_mention",
			Data: &slackevents.AppMentionEvent{
				Type:            "app_mention",
				User:            "U1",
				Text:            "<@UBOT> hello",
				TimeStamp:       "111.222",
				ThreadTimeStamp: threadTS,
				Channel:         "C1",
			},
		},
	}
}

func TestReplier_PostText(t *testing.T) {
	f := &fakeSlack{}
	c := newTestClient(t, f)

	require.NoError(t, c.Replier("C1").PostText(context.Background(), "111.222", "Generating..."))
	require.Len(t, f.posts, 1)
	assert.Equal(t, "C1", f.posts[0].Get("channel"))
	assert.Equal(t, "111.222", f.posts[0].Get("thread_ts"))
	assert.Equal(t, "Generating...", f.posts[0].Get("text"))
}

func TestReplier_PostBlocks(t *testing.T) {
	f := &fakeSlack{}
	c := newTestClient(t, f)

	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, "<@U1>\nq", false, false), nil, nil),
	}
	require.NoError(t, c.Replier("C1").PostBlocks(context.Background(), "111.222", "q", blocks))
	require.Len(t, f.posts, 1)

	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.posts[0].Get("blocks")), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "section", got[0]["type"])
	assert.Equal(t, "111.222", f.posts[0].Get("thread_ts"))
}

func TestReplier_APIError(t *testing.T) {
	f := &fakeSlack{fail: true}
	c := newTestClient(t, f)

	err := c.Replier("C1").PostText(context.Background(), "1", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}

func TestClient_HealthCheck(t *testing.T) {
	assert.NoError(t, newTestClient(t, &fakeSlack{}).HealthCheck(context.Background()))
	assert.Error(t, newTestClient(t, &fakeSlack{fail: true}).HealthCheck(context.Background()))
}

func TestDispatcher_AppMention(t *testing.T) {
	f := &fakeSlack{}
	h := &recordingHandler{}
	d := NewDispatcher(h, newTestClient(t, f), zap.NewNop())

	require.NoError(t, d.Dispatch(context.Background(), appMention("")))
	require.Len(t, h.events, 1)
	assert.Equal(t, dommention.Event{
		User: "U1", Channel: "C1", Text: "<@UBOT> hello", TS: "111.222",
	}, h.events[0])

	require.Len(t, f.posts, 1)
	assert.Equal(t, "C1", f.posts[0].Get("channel"))
	assert.Equal(t, "111.222", f.posts[0].Get("thread_ts"))
}

func TestDispatcher_IgnoresOtherEvents(t *testing.T) {
	h := &recordingHandler{}
	d := NewDispatcher(h, NewClient("x"), zap.NewNop())

	ev := slackevents.EventsAPIEvent{
		Type: slackevents.CallbackEvent,
		InnerEvent: slackevents.EventsAPIInnerEvent{
			Type: "message",
			Data: &slackevents.MessageEvent{Type: "message", Text: "hi"},
		},
	}
	require.NoError(t, d.Dispatch(context.Background(), ev))
	require.NoError(t, d.Dispatch(context.Background(), slackevents.EventsAPIEvent{Type: slackevents.AppRateLimited}))
	assert.Empty(t, h.events)
}

func TestDispatcher_HandlerError(t *testing.T) {
	h := &recordingHandler{err: errors.New("boom")}
	d := NewDispatcher(h, NewClient("x"), zap.NewNop())

	err := d.Dispatch(context.Background(), appMention(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

type fakeAcker struct {
	acked []string
}

func (a *fakeAcker) Ack(req socketmode.Request, _ ...interface{}) {
	a.acked = append(a.acked, req.EnvelopeID)
}

func TestSocketRunner_AcksAndDispatches(t *testing.T) {
	f := &fakeSlack{}
	h := &recordingHandler{}
	r := &SocketRunner{
		dispatcher: NewDispatcher(h, newTestClient(t, f), zap.NewNop()),
		logger:     zap.NewNop(),
	}
	ack := &fakeAcker{}

	r.handle(context.Background(), ack, socketmode.Event{
		Type:    socketmode.EventTypeEventsAPI,
		Data:    appMention("100.000"),
		Request: &socketmode.Request{EnvelopeID: "env-1"},
	})

	assert.Equal(t, []string{"env-1"}, ack.acked)
	require.Len(t, h.events, 1)
	assert.Equal(t, "100.000", h.events[0].Thread())
}

func TestSocketRunner_LifecycleEventsNotAcked(t *testing.T) {
	h := &recordingHandler{}
	r := &SocketRunner{dispatcher: NewDispatcher(h, NewClient("x"), zap.NewNop()), logger: zap.NewNop()}
	ack := &fakeAcker{}

	r.handle(context.Background(), ack, socketmode.Event{Type: socketmode.EventTypeConnected})
	r.handle(context.Background(), ack, socketmode.Event{Type: socketmode.EventTypeConnecting})

	assert.Empty(t, ack.acked)
	assert.Empty(t, h.events)
}
