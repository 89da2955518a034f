package budget

// Budget tracks the daily generation call budget.
type Budget struct {
	limit       int64
	remaining   int64
	isExhausted bool
	resetsAt    int64 // unix seconds, converted to RFC 3339 at transport layer
}

// New creates a Budget snapshot.
func New(limit, remaining int64, isExhausted bool, resetsAt int64) Budget {
	return Budget{
		limit:       limit,
		remaining:   remaining,
		isExhausted: isExhausted,
		resetsAt:    resetsAt,
	}
}

// Limit returns the daily call cap.
func (b Budget) Limit() int64 { return b.limit }

// Remaining returns calls left today.
func (b Budget) Remaining() int64 { return b.remaining }

// IsExhausted reports whether the budget is spent.
func (b Budget) IsExhausted() bool { return b.isExhausted }

// ResetsAt returns the reset timestamp (unix seconds).
func (b Budget) ResetsAt() int64 { return b.resetsAt }
