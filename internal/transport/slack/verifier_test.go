package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kailas-cloud/geminibot/internal/domain"
)

func signedHeader(secret, body string, ts time.Time) http.Header {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + stamp + ":" + body))

	h := http.Header{}
	h.Set("X-Slack-Request-Timestamp", stamp)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return h
}

func TestVerifier(t *testing.T) {
	const secret = "shhh"
	body := `{"type":"event_callback"}`
	v := NewVerifier(secret)

	assert.NoError(t, v.Verify(signedHeader(secret, body, time.Now()), []byte(body)))

	err := v.Verify(signedHeader("other", body, time.Now()), []byte(body))
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature), "wrong secret: %v", err)

	err = v.Verify(signedHeader(secret, body, time.Now().Add(-time.Hour)), []byte(body))
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature), "stale timestamp: %v", err)

	err = v.Verify(http.Header{}, []byte(body))
	assert.True(t, errors.Is(err, domain.ErrInvalidSignature), "missing headers: %v", err)
}
