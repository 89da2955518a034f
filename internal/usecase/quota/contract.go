package quota

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/geminibot/internal/domain/usage"
)

// UsageStore atomically increments the per-day usage record.
type UsageStore interface {
	Increment(ctx context.Context, date string, expiresAt time.Time) (domusage.Record, error)
}
