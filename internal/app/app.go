package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"borrow-rate-alerts/internal/alerting"
	"borrow-rate-alerts/internal/config"
	"borrow-rate-alerts/internal/engine"
	"borrow-rate-alerts/internal/fetcher"
	"borrow-rate-alerts/internal/scheduler"
	"borrow-rate-alerts/internal/service"
	"borrow-rate-alerts/internal/state"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() fetcher.RateFetcher {
	if a.Config.Compound.Source == "onchain" {
		markets := make([]fetcher.Market, 0, len(a.Config.Compound.Markets))
		for _, m := range a.Config.Compound.Markets {
			markets = append(markets, fetcher.Market{Asset: m.Asset, Address: m.CToken})
		}
		return fetcher.NewOnChain(fetcher.OnChainOptions{
			RPCURL:  a.Config.Compound.RPCURL,
			Markets: markets,
			Timeout: a.Config.Compound.RequestTimeout,
		}, a.Logger)
	}

	return fetcher.NewCompound(fetcher.CompoundOptions{
		BaseURL:   a.Config.Compound.BaseURL,
		Timeout:   a.Config.Compound.RequestTimeout,
		UserAgent: a.Config.Compound.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifiers() []alerting.Notifier {
	var notifiers []alerting.Notifier

	if a.Config.SMS.Enabled {
		notifiers = append(notifiers, alerting.NewSMSNotifier(alerting.SMSOptions{
			AccountSID: a.Config.SMS.AccountSID,
			AuthToken:  a.Config.SMS.AuthToken,
			FromNumber: a.Config.SMS.FromNumber,
			ToNumber:   a.Config.SMS.ToNumber,
			APIBase:    a.Config.SMS.APIBase,
			Timeout:    a.Config.SMS.RequestTimeout,
		}, a.Logger))
	}

	if a.Config.Email.Enabled {
		notifiers = append(notifiers, alerting.NewEmailNotifier(alerting.EmailOptions{
			APIKey:    a.Config.Email.APIKey,
			ToEmail:   a.Config.Email.ToEmail,
			FromEmail: a.Config.Email.FromEmail,
			APIBase:   a.Config.Email.APIBase,
			Timeout:   a.Config.Email.RequestTimeout,
		}, a.Logger))
	}

	return notifiers
}

func (a *App) openStore(ctx context.Context) (state.Store, func(), error) {
	if a.Config.State.Backend == "postgres" {
		store, err := state.NewPostgresStore(ctx, a.Config.State, a.Logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	return state.NewFileStore(a.Config.State.Path, a.Logger), nil, nil
}

func (a *App) thresholdTable() engine.ThresholdTable {
	table := make(engine.ThresholdTable, 0, len(a.Config.Alerting.Thresholds))
	for _, t := range a.Config.Alerting.Thresholds {
		table = append(table, engine.Threshold{
			Asset:   t.Asset,
			MaxRate: decimal.NewFromFloat(t.MaxRate),
		})
	}
	return table
}

func (a *App) newService(ctx context.Context) (*service.Service, func(), error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	svc := service.New(
		a.newFetcher(),
		store,
		a.newNotifiers(),
		a.thresholdTable(),
		a.Config.Alerting.Cooldown,
		a.Logger,
	)
	return svc, closeStore, nil
}

// RunOnce executes a single alerting invocation, the mode an external
// scheduler would trigger.
func (a *App) RunOnce(ctx context.Context) error {
	svc, closeStore, err := a.newService(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	result, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("status", result.StatusCode).Bool("alerted", result.Alerted).Msg("invocation complete")
	return nil
}

// Run executes the long-running polling daemon.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closeStore, err := a.newService(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	a.Logger.Info().Msg("starting rate watcher")
	err = sched.Run(ctx, func(ctx context.Context, at time.Time) error {
		_, runErr := svc.RunOnce(ctx)
		return runErr
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("rate watcher terminated with error")
		return err
	}

	a.Logger.Info().Msg("rate watcher stopped")
	return nil
}
