package mention

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	dommention "github.com/kailas-cloud/geminibot/internal/domain/mention"
)

// --- Mocks ---

type mockGate struct {
	allow bool
	calls int
}

func (m *mockGate) Allow(context.Context) bool {
	m.calls++
	return m.allow
}

type mockGenerator struct {
	text    string
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.text, m.err
}

type post struct {
	thread string
	text   string
	blocks []slack.Block
}

type mockReplier struct {
	texts     []post
	finals    []post
	textErr   error
	blocksErr error
}

func (m *mockReplier) PostText(_ context.Context, threadTS, text string) error {
	m.texts = append(m.texts, post{thread: threadTS, text: text})
	return m.textErr
}

func (m *mockReplier) PostBlocks(_ context.Context, threadTS, fallback string, blocks []slack.Block) error {
	m.finals = append(m.finals, post{thread: threadTS, text: fallback, blocks: blocks})
	return m.blocksErr
}

func sectionText(t *testing.T, b slack.Block) string {
	t.Helper()
	s, ok := b.(*slack.SectionBlock)
	if !ok {
		t.Fatalf("block type = %T, want *slack.SectionBlock", b)
	}
	return s.Text.Text
}

func newEvent(text string) dommention.Event {
	return dommention.Event{User: "U1", Channel: "C1", Text: text, TS: "111.222"}
}

// --- Tests ---

func TestHandle_Generated(t *testing.T) {
	gate := &mockGate{allow: true}
	gen := &mockGenerator{text: "**Tokyo**"}
	r := &mockReplier{}
	h := NewHandler(gate, gen, Messages{}, zap.NewNop())

	out, err := h.Handle(context.Background(), newEvent("<@UBOT> capital of Japan?"), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != OutcomeGenerated {
		t.Errorf("outcome = %q, want %q", out, OutcomeGenerated)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "capital of Japan?" {
		t.Errorf("prompts = %v", gen.prompts)
	}
	if len(r.texts) != 1 || r.texts[0].text != "Generating..." || r.texts[0].thread != "111.222" {
		t.Errorf("placeholder posts = %+v", r.texts)
	}
	if len(r.finals) != 1 {
		t.Fatalf("final replies = %d, want 1", len(r.finals))
	}
	final := r.finals[0]
	if final.thread != "111.222" {
		t.Errorf("thread = %q", final.thread)
	}
	if len(final.blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(final.blocks))
	}
	if got := sectionText(t, final.blocks[0]); got != "<@U1>\ncapital of Japan?" {
		t.Errorf("first section = %q", got)
	}
	if got := sectionText(t, final.blocks[1]); got != "*Tokyo*" {
		t.Errorf("second section = %q", got)
	}
}

func TestHandle_ThreadReplyUsesThreadTS(t *testing.T) {
	r := &mockReplier{}
	h := NewHandler(&mockGate{allow: true}, &mockGenerator{text: "ok"}, Messages{}, zap.NewNop())

	ev := newEvent("<@UBOT> hi")
	ev.ThreadTS = "100.000"
	if _, err := h.Handle(context.Background(), ev, r); err != nil {
		t.Fatal(err)
	}
	if r.finals[0].thread != "100.000" {
		t.Errorf("thread = %q, want 100.000", r.finals[0].thread)
	}
}

func TestHandle_EmptyPromptConsumesNoQuota(t *testing.T) {
	gate := &mockGate{allow: true}
	gen := &mockGenerator{}
	r := &mockReplier{}
	h := NewHandler(gate, gen, Messages{}, zap.NewNop())

	out, err := h.Handle(context.Background(), newEvent("<@UBOT>   "), r)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeEmptyPrompt {
		t.Errorf("outcome = %q", out)
	}
	if gate.calls != 0 || len(gen.prompts) != 0 {
		t.Errorf("gate calls = %d, generator calls = %d, want 0", gate.calls, len(gen.prompts))
	}
	if len(r.texts) != 1 || r.texts[0].text != "<@U1> 何かご質問はありますか？" {
		t.Errorf("posts = %+v", r.texts)
	}
	if len(r.finals) != 0 {
		t.Errorf("unexpected block reply")
	}
}

func TestHandle_DeniedSkipsGeneration(t *testing.T) {
	gen := &mockGenerator{text: "never"}
	r := &mockReplier{}
	h := NewHandler(&mockGate{allow: false}, gen, Messages{}, zap.NewNop())

	out, err := h.Handle(context.Background(), newEvent("<@UBOT> q"), r)
	if err != nil {
		t.Fatal(err)
	}
	if out != OutcomeDenied {
		t.Errorf("outcome = %q", out)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator must not be called when denied")
	}
	if got := sectionText(t, r.finals[0].blocks[1]); got != DefaultMessages().OverLimit {
		t.Errorf("body = %q", got)
	}
}

func TestHandle_GenerationErrorBecomesReply(t *testing.T) {
	r := &mockReplier{}
	gen := &mockGenerator{err: errors.New("upstream 503")}
	h := NewHandler(&mockGate{allow: true}, gen, Messages{ErrorPrefix: "error: "}, zap.NewNop())

	out, err := h.Handle(context.Background(), newEvent("<@UBOT> q"), r)
	if err != nil {
		t.Fatalf("generation errors must not propagate: %v", err)
	}
	if out != OutcomeGenerationFailed {
		t.Errorf("outcome = %q", out)
	}
	if len(r.finals) != 1 {
		t.Fatalf("final replies = %d, want 1", len(r.finals))
	}
	if got := sectionText(t, r.finals[0].blocks[1]); got != "error: upstream 503" {
		t.Errorf("body = %q", got)
	}
}

func TestHandle_PlaceholderFailureIsNotFatal(t *testing.T) {
	r := &mockReplier{textErr: errors.New("rate limited")}
	h := NewHandler(&mockGate{allow: true}, &mockGenerator{text: "ok"}, Messages{}, zap.NewNop())

	out, err := h.Handle(context.Background(), newEvent("<@UBOT> q"), r)
	if err != nil || out != OutcomeGenerated {
		t.Fatalf("out = %q, err = %v", out, err)
	}
	if len(r.finals) != 1 {
		t.Errorf("final replies = %d, want 1", len(r.finals))
	}
}

func TestHandle_FinalPostErrorReturned(t *testing.T) {
	r := &mockReplier{blocksErr: errors.New("channel_not_found")}
	h := NewHandler(&mockGate{allow: true}, &mockGenerator{text: "ok"}, Messages{}, zap.NewNop())

	_, err := h.Handle(context.Background(), newEvent("<@UBOT> q"), r)
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Errorf("err = %v", err)
	}
}

func TestHandle_WithoutConversion(t *testing.T) {
	r := &mockReplier{}
	h := NewHandler(&mockGate{allow: true}, &mockGenerator{text: "**raw**"}, Messages{}, zap.NewNop()).
		WithMarkdownConversion(false)

	if _, err := h.Handle(context.Background(), newEvent("<@UBOT> q"), r); err != nil {
		t.Fatal(err)
	}
	if got := sectionText(t, r.finals[0].blocks[1]); got != "**raw**" {
		t.Errorf("body = %q", got)
	}
}

func TestMessages_Defaults(t *testing.T) {
	m := Messages{Placeholder: "Thinking..."}.withDefaults()
	if m.Placeholder != "Thinking..." {
		t.Errorf("placeholder = %q", m.Placeholder)
	}
	if m.OverLimit != DefaultMessages().OverLimit {
		t.Errorf("over limit = %q", m.OverLimit)
	}
}
