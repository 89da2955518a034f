// Package slack delivers app mentions from Slack to the mention handler and posts replies.
package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// Client is a thin wrapper over the Slack Web API used for replies.
type Client struct {
	api *slack.Client
}

// NewClient creates a Web API client. opts are passed to slack.New
// (e.g. slack.OptionAPIURL in tests, slack.OptionAppLevelToken for socket mode).
func NewClient(botToken string, opts ...slack.Option) *Client {
	return &Client{api: slack.New(botToken, opts...)}
}

// API exposes the underlying Web API client.
func (c *Client) API() *slack.Client { return c.api }

// Replier binds replies to a channel.
func (c *Client) Replier(channel string) *Replier {
	return &Replier{api: c.api, channel: channel}
}

// HealthCheck verifies the bot token via auth.test.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack auth.test: %w", err)
	}
	return nil
}

// Replier posts thread replies into one channel.
type Replier struct {
	api     *slack.Client
	channel string
}

// PostText posts a plain text reply in the thread.
func (r *Replier) PostText(ctx context.Context, threadTS, text string) error {
	_, _, err := r.api.PostMessageContext(ctx, r.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", r.channel, err)
	}
	return nil
}

// PostBlocks posts a block reply in the thread. fallback is shown in notifications.
func (r *Replier) PostBlocks(ctx context.Context, threadTS, fallback string, blocks []slack.Block) error {
	_, _, err := r.api.PostMessageContext(ctx, r.channel,
		slack.MsgOptionBlocks(blocks...),
		slack.MsgOptionText(fallback, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", r.channel, err)
	}
	return nil
}
