package slack

import (
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/kailas-cloud/geminibot/internal/domain"
)

// Verifier checks the X-Slack-Signature of inbound requests.
type Verifier struct {
	secret string
}

// NewVerifier creates a Verifier for the app's signing secret.
func NewVerifier(signingSecret string) *Verifier {
	return &Verifier{secret: signingSecret}
}

// Verify returns domain.ErrInvalidSignature when the signature or timestamp is not acceptable.
func (v *Verifier) Verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, v.secret)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSignature, err)
	}
	return nil
}
