// Package mention answers chat mentions with generated replies.
package mention

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dommention "github.com/kailas-cloud/geminibot/internal/domain/mention"
	"github.com/kailas-cloud/geminibot/internal/formatter"
	"github.com/kailas-cloud/geminibot/internal/metrics"
)

// Outcome classifies how a mention was handled.
type Outcome string

const (
	OutcomeEmptyPrompt      Outcome = "empty_prompt"
	OutcomeDenied           Outcome = "denied"
	OutcomeGenerated        Outcome = "generated"
	OutcomeGenerationFailed Outcome = "generation_failed"
)

// Messages are the user-facing texts posted by the handler.
type Messages struct {
	EmptyPrompt string
	Placeholder string
	OverLimit   string
	ErrorPrefix string
}

// DefaultMessages returns the stock reply texts.
func DefaultMessages() Messages {
	return Messages{
		EmptyPrompt: "何かご質問はありますか？",
		Placeholder: "Generating...",
		OverLimit:   "申し訳ありませんが、本日のAPI利用制限に達しました。明日以降に再度お試しください。",
		ErrorPrefix: "申し訳ありませんが、エラーが発生しました: ",
	}
}

func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	if m.EmptyPrompt == "" {
		m.EmptyPrompt = d.EmptyPrompt
	}
	if m.Placeholder == "" {
		m.Placeholder = d.Placeholder
	}
	if m.OverLimit == "" {
		m.OverLimit = d.OverLimit
	}
	if m.ErrorPrefix == "" {
		m.ErrorPrefix = d.ErrorPrefix
	}
	return m
}

// Handler runs the mention flow shared by every transport.
type Handler struct {
	gate      Gate
	generator Generator
	msgs      Messages
	convert   bool
	logger    *zap.Logger
}

// NewHandler creates a Handler. Empty message fields fall back to DefaultMessages.
func NewHandler(gate Gate, generator Generator, msgs Messages, logger *zap.Logger) *Handler {
	return &Handler{
		gate:      gate,
		generator: generator,
		msgs:      msgs.withDefaults(),
		convert:   true,
		logger:    logger,
	}
}

// WithMarkdownConversion toggles Markdown to mrkdwn conversion of generated text.
func (h *Handler) WithMarkdownConversion(on bool) *Handler {
	h.convert = on
	return h
}

// Handle answers one mention. Once a prompt is present, exactly one final
// reply is posted whatever the gate or the generator do. The returned error
// only reports a failed final post.
func (h *Handler) Handle(ctx context.Context, ev dommention.Event, r Replier) (Outcome, error) {
	thread := ev.Thread()
	prompt := ev.Prompt()
	log := h.logger.With(
		zap.String("user", ev.User),
		zap.String("channel", ev.Channel),
		zap.String("thread_ts", thread),
	)

	if prompt == "" {
		h.record(OutcomeEmptyPrompt)
		if err := r.PostText(ctx, thread, formatter.Mention(ev.User, h.msgs.EmptyPrompt)); err != nil {
			return OutcomeEmptyPrompt, fmt.Errorf("post empty-prompt reply: %w", err)
		}
		return OutcomeEmptyPrompt, nil
	}

	log.Info("Received mention", zap.String("prompt", prompt))

	if err := r.PostText(ctx, thread, h.msgs.Placeholder); err != nil {
		log.Warn("Failed to post placeholder", zap.Error(err))
	}

	outcome, body := h.answer(ctx, prompt, log)
	h.record(outcome)

	if err := r.PostBlocks(ctx, thread, formatter.Truncate(body), formatter.Blocks(ev.User, prompt, body)); err != nil {
		return outcome, fmt.Errorf("post reply: %w", err)
	}
	return outcome, nil
}

func (h *Handler) answer(ctx context.Context, prompt string, log *zap.Logger) (Outcome, string) {
	if !h.gate.Allow(ctx) {
		return OutcomeDenied, h.msgs.OverLimit
	}

	text, err := h.generator.Generate(ctx, prompt)
	if err != nil {
		log.Error("Generation failed", zap.Error(err))
		return OutcomeGenerationFailed, h.msgs.ErrorPrefix + err.Error()
	}

	if h.convert {
		text = formatter.ToMrkdwn(text)
	}
	return OutcomeGenerated, text
}

func (h *Handler) record(o Outcome) {
	metrics.MentionsTotal.WithLabelValues(string(o)).Inc()
}
