// Package quota implements the daily generation quota gate.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	domusage "github.com/kailas-cloud/geminibot/internal/domain/usage"
	"github.com/kailas-cloud/geminibot/internal/metrics"
)

// DefaultDailyLimit is the ceiling used when none is configured.
const DefaultDailyLimit int64 = 1000

// Result classifies a gate check.
type Result string

const (
	// Allowed means the post-increment count is within the ceiling.
	Allowed Result = "allowed"
	// Denied means the post-increment count exceeds the ceiling.
	Denied Result = "denied"
	// CheckFailed means the store could not be consulted.
	CheckFailed Result = "check_failed"
)

// Decision is the outcome of one gate check.
type Decision struct {
	Result Result
	Record domusage.Record // zero on CheckFailed
	Err    error           // set on CheckFailed
}

// Gate answers "is this call allowed?" by incrementing today's usage record
// and comparing the new count with the daily ceiling. Every check consumes
// one unit, including denied ones.
type Gate struct {
	store  UsageStore
	limit  int64
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewGate creates a gate. limit <= 0 falls back to DefaultDailyLimit.
func NewGate(store UsageStore, limit int64, logger *zap.Logger) *Gate {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	return &Gate{
		store:  store,
		limit:  limit,
		loc:    time.Local,
		now:    time.Now,
		logger: logger,
	}
}

// WithLocation sets the time zone that defines calendar days.
func (g *Gate) WithLocation(loc *time.Location) *Gate {
	if loc != nil {
		g.loc = loc
	}
	return g
}

// WithClock overrides the clock (tests).
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Limit returns the daily ceiling.
func (g *Gate) Limit() int64 { return g.limit }

// Check increments today's record and classifies the result.
func (g *Gate) Check(ctx context.Context) Decision {
	now := g.now()
	date := domusage.DayKey(now, g.loc)
	expiresAt := domusage.NextMidnight(now, g.loc)

	rec, err := g.store.Increment(ctx, date, expiresAt)
	if err != nil {
		metrics.QuotaDecisionsTotal.WithLabelValues(string(CheckFailed)).Inc()
		return Decision{Result: CheckFailed, Err: err}
	}

	metrics.QuotaUsage.Set(float64(rec.UsageCount()))

	result := Allowed
	if rec.UsageCount() > g.limit {
		result = Denied
	}
	metrics.QuotaDecisionsTotal.WithLabelValues(string(result)).Inc()
	return Decision{Result: result, Record: rec}
}

// Allow reports whether a generation call may proceed.
// A failed check fails open: availability of the bot outranks strict quota enforcement.
func (g *Gate) Allow(ctx context.Context) bool {
	d := g.Check(ctx)
	switch d.Result {
	case CheckFailed:
		g.logger.Error("API limit check failed, allowing request", zap.Error(d.Err))
		return true
	case Denied:
		g.logger.Warn("Daily generation limit reached",
			zap.String("date", d.Record.Date()),
			zap.Int64("usage_count", d.Record.UsageCount()),
			zap.Int64("daily_limit", g.limit),
		)
		return false
	default:
		return true
	}
}
