package health

import "context"

// StorePinger checks quota store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// PlatformChecker checks that the chat platform accepts the bot credentials.
type PlatformChecker interface {
	HealthCheck(ctx context.Context) error
}
