// Package mention holds the inbound mention event and prompt extraction rules.
package mention

import "strings"

// Event is an app mention delivered by the chat platform.
type Event struct {
	User     string
	Channel  string
	Text     string
	TS       string
	ThreadTS string
}

// Thread returns the thread anchor a reply belongs to.
// A top-level mention starts a new thread anchored at itself.
func (e Event) Thread() string {
	if e.ThreadTS != "" {
		return e.ThreadTS
	}
	return e.TS
}

// Prompt returns the question carried by the mention.
func (e Event) Prompt() string { return ExtractPrompt(e.Text) }

// ExtractPrompt returns the text after the first '>' trimmed of whitespace.
// Text without '>' is returned verbatim.
//
// Known limitation: this does not parse mention tags. A literal '>' before
// the tag closes, or several mentions in one message, are split at the first
// '>' regardless.
func ExtractPrompt(text string) string {
	_, after, found := strings.Cut(text, ">")
	if !found {
		return text
	}
	return strings.TrimSpace(after)
}
