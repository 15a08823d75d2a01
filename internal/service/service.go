package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"borrow-rate-alerts/internal/alerting"
	"borrow-rate-alerts/internal/engine"
	"borrow-rate-alerts/internal/fetcher"
	"borrow-rate-alerts/internal/state"
)

// Result is the invocation outcome reported to the caller or scheduler.
// An invocation that ran to completion reports 200 whether or not an alert
// went out; only a failed rate fetch surfaces as an error.
type Result struct {
	StatusCode int
	Alerted    bool
}

// Service runs one cooldown-gated alerting invocation at a time.
type Service struct {
	fetcher    fetcher.RateFetcher
	store      state.Store
	notifiers  []alerting.Notifier
	thresholds engine.ThresholdTable
	cooldown   time.Duration
	logger     zerolog.Logger

	now func() time.Time
}

// New constructs the alerting service.
func New(f fetcher.RateFetcher, store state.Store, notifiers []alerting.Notifier, thresholds engine.ThresholdTable, cooldown time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:    f,
		store:      store,
		notifiers:  notifiers,
		thresholds: thresholds,
		cooldown:   cooldown,
		logger:     logger.With().Str("component", "service").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce performs a single invocation: load state, fetch rates, decide,
// dispatch, persist. Each run reconstructs its world from the external
// stores; nothing survives between calls inside the process.
func (s *Service) RunOnce(ctx context.Context) (Result, error) {
	now := s.now()

	lastAlert := state.DefaultEpoch
	if s.store != nil {
		lastAlert = s.store.LoadLastAlertTime(ctx)
	}

	rates, err := s.fetcher.FetchRates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fetch borrow rates: %w", err)
	}

	s.logRates(rates)

	decision := engine.Decide(rates, s.thresholds, lastAlert, now, s.cooldown)
	if !decision.ShouldAlert {
		s.logger.Info().
			Int("exceeding", len(decision.Exceeding)).
			Time("last_alert", lastAlert).
			Msg("no alert sent")
		return Result{StatusCode: http.StatusOK}, nil
	}

	message := alerting.RenderMessage(decision.Exceeding)
	s.logger.Info().
		Int("exceeding", len(decision.Exceeding)).
		Str("message", message).
		Msg("thresholds exceeded; dispatching alert")

	// Both channels run to completion before the state write; neither
	// outcome gates the other or the persistence step.
	alerting.Dispatch(ctx, s.notifiers, message, s.logger)

	if s.store != nil {
		if err := s.store.SaveLastAlertTime(ctx, now); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist last alert time")
		}
	}

	return Result{StatusCode: http.StatusOK, Alerted: true}, nil
}

func (s *Service) logRates(rates engine.RateSnapshot) {
	event := s.logger.Info()
	for _, entry := range s.thresholds {
		if rate, ok := rates[entry.Asset]; ok {
			event = event.Str(entry.Asset, rate.String())
		}
	}
	event.Int("markets", len(rates)).Msg("current borrow rates")
}
