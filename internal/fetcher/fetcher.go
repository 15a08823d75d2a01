package fetcher

import (
	"context"

	"borrow-rate-alerts/internal/engine"
)

// RateFetcher retrieves the current borrow rates for all assets known to
// the remote source. A failed fetch aborts the whole invocation; there is
// no partial or degraded mode.
type RateFetcher interface {
	FetchRates(ctx context.Context) (engine.RateSnapshot, error)
}
