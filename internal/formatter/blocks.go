package formatter

import (
	"fmt"

	"github.com/slack-go/slack"
)

// MaxSectionText is Slack's character limit for a section block's text.
const MaxSectionText = 3000

const ellipsis = "…"

// Blocks builds the two-section reply: the asker and their prompt, then the response.
func Blocks(userID, prompt, response string) []slack.Block {
	header := slack.NewTextBlockObject(slack.MarkdownType, Truncate(Echo(userID, prompt)), false, false)
	if response == "" {
		response = " "
	}
	body := slack.NewTextBlockObject(slack.MarkdownType, Truncate(response), false, false)

	return []slack.Block{
		slack.NewSectionBlock(header, nil, nil),
		slack.NewSectionBlock(body, nil, nil),
	}
}

// Echo renders the first section: a mention of the asker followed by the prompt.
func Echo(userID, prompt string) string {
	return fmt.Sprintf("<@%s>\n%s", userID, prompt)
}

// Mention renders a user mention prefix.
func Mention(userID, msg string) string {
	return fmt.Sprintf("<@%s> %s", userID, msg)
}

// Truncate cuts s to MaxSectionText characters, marking the cut with an ellipsis.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSectionText {
		return s
	}
	return string(runes[:MaxSectionText-1]) + ellipsis
}
