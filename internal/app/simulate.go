package app

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"borrow-rate-alerts/internal/engine"
	"borrow-rate-alerts/internal/fetcher"
	"borrow-rate-alerts/internal/service"
)

// SimulateAlert runs one invocation against a fixed snapshot, exercising
// the real decision, dispatch, and persistence path.
func (a *App) SimulateAlert(ctx context.Context, rates map[string]float64) error {
	notifiers := a.newNotifiers()
	if len(notifiers) == 0 {
		return errors.New("no notification channels configured")
	}

	snapshot := make(engine.RateSnapshot, len(rates))
	for asset, rate := range rates {
		snapshot[asset] = decimal.NewFromFloat(rate).Round(2)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	svc := service.New(
		&staticFetcher{snapshot: snapshot},
		store,
		notifiers,
		a.thresholdTable(),
		a.Config.Alerting.Cooldown,
		a.Logger,
	)

	_, err = svc.RunOnce(ctx)
	return err
}

type staticFetcher struct {
	snapshot engine.RateSnapshot
}

func (s *staticFetcher) FetchRates(ctx context.Context) (engine.RateSnapshot, error) {
	return s.snapshot, nil
}

var _ fetcher.RateFetcher = (*staticFetcher)(nil)
