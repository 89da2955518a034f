package usage

import (
	"context"
	"fmt"
	"time"

	domusage "github.com/kailas-cloud/geminibot/internal/domain/usage"
	"github.com/kailas-cloud/geminibot/internal/domain/usage/budget"
)

// Service handles usage reporting.
type Service struct {
	reader CountReader
	limit  int64
	loc    *time.Location
	now    func() time.Time
}

// New creates a Service for the given daily ceiling.
func New(reader CountReader, limit int64, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{reader: reader, limit: limit, loc: loc, now: time.Now}
}

// WithClock overrides the clock (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetReport builds today's usage report. Reading does not consume quota.
func (s *Service) GetReport(ctx context.Context) (domusage.Report, error) {
	now := s.now()
	date := domusage.DayKey(now, s.loc)

	used, err := s.reader.Count(ctx, date)
	if err != nil {
		return domusage.Report{}, fmt.Errorf("usage report: %w", err)
	}

	remaining := s.limit - used
	if remaining < 0 {
		remaining = 0
	}
	resetsAt := domusage.NextMidnight(now, s.loc).Unix()

	b := budget.New(s.limit, remaining, remaining == 0, resetsAt)
	return domusage.NewReport(date, used, b), nil
}
