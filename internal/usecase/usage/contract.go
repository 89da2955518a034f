package usage

import "context"

// CountReader provides read-only access to daily usage counters.
type CountReader interface {
	Count(ctx context.Context, date string) (int64, error)
}
