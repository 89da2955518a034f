package usage

import (
	"time"

	"github.com/kailas-cloud/geminibot/internal/domain/usage/budget"
)

// DateLayout is the calendar-day key format of a usage record.
const DateLayout = "2006-01-02"

// Record is the per-day generation counter.
type Record struct {
	date       string
	usageCount int64
	expiresAt  int64 // unix seconds of the next local midnight
}

// NewRecord creates a usage record snapshot.
func NewRecord(date string, count, expiresAt int64) Record {
	return Record{date: date, usageCount: count, expiresAt: expiresAt}
}

// Date returns the ISO date key.
func (r Record) Date() string { return r.date }

// UsageCount returns the number of gate checks recorded for the day.
func (r Record) UsageCount() int64 { return r.usageCount }

// ExpiresAt returns the expiry timestamp (unix seconds).
func (r Record) ExpiresAt() int64 { return r.expiresAt }

// DayKey formats t as a record key in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// NextMidnight returns the start of the calendar day after t in loc.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day()+1, 0, 0, 0, 0, loc)
}

// Report is a daily quota usage report.
type Report struct {
	date   string
	used   int64
	budget budget.Budget
}

// NewReport creates a usage report.
func NewReport(date string, used int64, b budget.Budget) Report {
	return Report{date: date, used: used, budget: b}
}

// Date returns the reported day.
func (r *Report) Date() string { return r.date }

// Used returns the number of gate checks recorded today.
func (r *Report) Used() int64 { return r.used }

// Budget returns the budget status.
func (r *Report) Budget() budget.Budget { return r.budget }
