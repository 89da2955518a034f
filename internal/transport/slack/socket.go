package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geminibot/internal/logger"
)

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketRunner receives events over a Socket Mode connection and handles
// them one at a time on a single worker loop.
type SocketRunner struct {
	client     *socketmode.Client
	dispatcher *Dispatcher
	logger     *zap.Logger
}

// NewSocketRunner creates a runner. c must carry an app-level token
// (slack.OptionAppLevelToken).
func NewSocketRunner(c *Client, dispatcher *Dispatcher, logger *zap.Logger) *SocketRunner {
	sm := socketmode.New(c.api,
		socketmode.OptionLog(zap.NewStdLog(logger.Named("socketmode"))),
	)
	return &SocketRunner{client: sm, dispatcher: dispatcher, logger: logger}
}

// Run connects and processes events until ctx is cancelled.
func (r *SocketRunner) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- r.client.RunContext(ctx) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("socket mode: %w", err)
		case evt, ok := <-r.client.Events:
			if !ok {
				return nil
			}
			r.handle(ctx, r.client, evt)
		}
	}
}

func (r *SocketRunner) handle(ctx context.Context, ack acker, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		r.logger.Info("Connecting to Slack")
	case socketmode.EventTypeConnected:
		r.logger.Info("Connected to Slack, waiting for mentions")
	case socketmode.EventTypeConnectionError:
		r.logger.Warn("Slack connection failed, retrying")
	case socketmode.EventTypeEventsAPI:
		ev, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || evt.Request == nil {
			return
		}
		ack.Ack(*evt.Request)

		log := r.logger.With(zap.String("envelope_id", evt.Request.EnvelopeID))
		if err := r.dispatcher.Dispatch(logger.ContextWithLogger(ctx, log), ev); err != nil {
			log.Error("Failed to handle event", zap.Error(err))
		}
	default:
		if evt.Request != nil {
			ack.Ack(*evt.Request)
		}
	}
}
