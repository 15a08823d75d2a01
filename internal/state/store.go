package state

import (
	"context"
	"time"
)

// DefaultEpoch is returned when no prior alert state exists. It sits far
// enough in the past that a first-ever run with exceeded thresholds alerts
// immediately.
var DefaultEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Store persists the single last-alert timestamp between invocations.
// Both operations are best effort: a failed read means "never alerted
// before" and a failed write is the caller's to log and ignore.
type Store interface {
	LoadLastAlertTime(ctx context.Context) time.Time
	SaveLastAlertTime(ctx context.Context, ts time.Time) error
}
