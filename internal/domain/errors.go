package domain

import "errors"

var (
	// ErrQuotaStore signals a failure of the daily usage counter store.
	ErrQuotaStore = errors.New("quota store error")
	// ErrGenerationFailed signals a generation provider failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrEmptyResponse signals that the provider returned no text.
	ErrEmptyResponse = errors.New("empty generation response")
	// ErrInvalidPayload signals an inbound body that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidSignature signals a request whose platform signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingChallenge signals a verification handshake without a challenge value.
	ErrMissingChallenge = errors.New("missing challenge")
)
