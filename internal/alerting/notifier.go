package alerting

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"borrow-rate-alerts/internal/engine"
)

const subject = "Compound Protocol Borrower Interest Rate Alert"

// Notifier delivers an alert message through one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, message string) error
}

// RenderMessage builds the human-readable alert body, one sentence per
// exceeded asset, in threshold table order.
func RenderMessage(exceeding []engine.Exceedance) string {
	builder := strings.Builder{}
	for _, exc := range exceeding {
		builder.WriteString(fmt.Sprintf(
			"The %s borrower interest rate (currently %s%%) has exceeded your threshold of %s%%. ",
			exc.Asset, exc.Rate.String(), exc.Limit.String(),
		))
	}
	return builder.String()
}

// Dispatch sends the message through every notifier concurrently and waits
// for all of them to finish. Channel failures are logged, never returned:
// one provider being down must not block the other channel or the
// caller's state persistence.
func Dispatch(ctx context.Context, notifiers []Notifier, message string, logger zerolog.Logger) {
	var wg sync.WaitGroup
	for _, n := range notifiers {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Notify(ctx, message); err != nil {
				logger.Error().Err(err).Str("channel", n.Name()).Msg("alert dispatch failed")
				return
			}
			logger.Info().Str("channel", n.Name()).Msg("alert dispatched")
		}(n)
	}
	wg.Wait()
}
