package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack/slackevents"
	"go.uber.org/zap"

	dommention "github.com/kailas-cloud/geminibot/internal/domain/mention"
	"github.com/kailas-cloud/geminibot/internal/logger"
	mentionuc "github.com/kailas-cloud/geminibot/internal/usecase/mention"
)

// MentionHandler answers one mention.
type MentionHandler interface {
	Handle(ctx context.Context, ev dommention.Event, r mentionuc.Replier) (mentionuc.Outcome, error)
}

// Dispatcher routes Events API callbacks to the mention handler.
type Dispatcher struct {
	handler MentionHandler
	client  *Client
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(handler MentionHandler, client *Client, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{handler: handler, client: client, logger: logger}
}

// Dispatch handles an Events API envelope. Events other than app_mention are ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, ev slackevents.EventsAPIEvent) error {
	if ev.Type != slackevents.CallbackEvent {
		d.logger.Debug("Ignoring envelope", zap.String("type", ev.Type))
		return nil
	}

	am, ok := ev.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		d.logger.Debug("Ignoring event", zap.String("type", ev.InnerEvent.Type))
		return nil
	}

	m := dommention.Event{
		User:     am.User,
		Channel:  am.Channel,
		Text:     am.Text,
		TS:       am.TimeStamp,
		ThreadTS: am.ThreadTimeStamp,
	}

	log := logger.FromContext(ctx)
	outcome, err := d.handler.Handle(ctx, m, d.client.Replier(am.Channel))
	if err != nil {
		return fmt.Errorf("handle app_mention: %w", err)
	}
	log.Info("Mention handled",
		zap.String("outcome", string(outcome)),
		zap.String("channel", am.Channel),
	)
	return nil
}
