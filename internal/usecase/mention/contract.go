package mention

import (
	"context"

	"github.com/slack-go/slack"
)

// Gate decides whether a generation call may proceed. Each call consumes quota.
type Gate interface {
	Allow(ctx context.Context) bool
}

// Generator produces a Markdown answer for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Replier posts into a thread of the channel the mention came from.
type Replier interface {
	PostText(ctx context.Context, threadTS, text string) error
	PostBlocks(ctx context.Context, threadTS, fallback string, blocks []slack.Block) error
}
