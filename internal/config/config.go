package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"borrow-rate-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Compound  CompoundConfig  `mapstructure:"compound"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Email     EmailConfig     `mapstructure:"email"`
	State     StateConfig     `mapstructure:"state"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SchedulerConfig governs polling cadence when running as a daemon.
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

// CompoundConfig captures borrow-rate source connectivity.
type CompoundConfig struct {
	Source         string         `mapstructure:"source"`
	BaseURL        string         `mapstructure:"base_url"`
	RPCURL         string         `mapstructure:"rpc_url"`
	Markets        []MarketConfig `mapstructure:"markets"`
	RequestTimeout time.Duration  `mapstructure:"request_timeout"`
	UserAgent      string         `mapstructure:"user_agent"`
}

// MarketConfig names a cToken contract for the on-chain source.
type MarketConfig struct {
	Asset  string `mapstructure:"asset"`
	CToken string `mapstructure:"ctoken"`
}

// AlertingConfig defines per-asset thresholds and the cooldown window.
type AlertingConfig struct {
	Cooldown   time.Duration     `mapstructure:"cooldown"`
	Thresholds []ThresholdConfig `mapstructure:"thresholds"`
}

// ThresholdConfig pairs an asset with its maximum acceptable borrow rate.
// Declaration order is preserved and drives alert message ordering.
type ThresholdConfig struct {
	Asset   string  `mapstructure:"asset"`
	MaxRate float64 `mapstructure:"max_rate"`
}

// SMSConfig holds Twilio messaging credentials and routing.
type SMSConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	AccountSID     string        `mapstructure:"account_sid"`
	AuthToken      string        `mapstructure:"auth_token"`
	FromNumber     string        `mapstructure:"from_number"`
	ToNumber       string        `mapstructure:"to_number"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// EmailConfig holds SendGrid transactional email settings.
type EmailConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIKey         string        `mapstructure:"api_key"`
	ToEmail        string        `mapstructure:"to_email"`
	FromEmail      string        `mapstructure:"from_email"`
	APIBase        string        `mapstructure:"api_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// StateConfig selects where the last-alert timestamp lives between runs.
type StateConfig struct {
	Backend         string        `mapstructure:"backend"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ratewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "5m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("compound.source", "api")
	v.SetDefault("compound.base_url", "https://api.compound.finance/api/v2")
	v.SetDefault("compound.request_timeout", "5s")
	v.SetDefault("compound.user_agent", "ratewatcher/1.0")

	v.SetDefault("alerting.cooldown", "2h")

	v.SetDefault("sms.enabled", true)
	v.SetDefault("sms.api_base", "https://api.twilio.com")
	v.SetDefault("sms.request_timeout", "3s")

	v.SetDefault("email.enabled", true)
	v.SetDefault("email.api_base", "https://api.sendgrid.com")
	v.SetDefault("email.request_timeout", "3s")

	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "/tmp/ratewatcher-state.json")
	v.SetDefault("state.max_open_conns", 2)
	v.SetDefault("state.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Alerting.Cooldown <= 0 {
		return fmt.Errorf("alerting.cooldown must be greater than zero")
	}
	seen := make(map[string]struct{}, len(c.Alerting.Thresholds))
	for _, t := range c.Alerting.Thresholds {
		if t.Asset == "" {
			return fmt.Errorf("alerting.thresholds entries require an asset name")
		}
		if t.MaxRate < 0 {
			return fmt.Errorf("alerting.thresholds[%s].max_rate cannot be negative", t.Asset)
		}
		if _, dup := seen[t.Asset]; dup {
			return fmt.Errorf("alerting.thresholds contains duplicate asset %s", t.Asset)
		}
		seen[t.Asset] = struct{}{}
	}
	switch c.Compound.Source {
	case "api", "":
	case "onchain":
		if c.Compound.RPCURL == "" {
			return fmt.Errorf("compound.rpc_url is required for the onchain source")
		}
		if len(c.Compound.Markets) == 0 {
			return fmt.Errorf("compound.markets is required for the onchain source")
		}
	default:
		return fmt.Errorf("compound.source must be api or onchain")
	}
	if c.SMS.Enabled {
		if c.SMS.AccountSID == "" || c.SMS.AuthToken == "" {
			return fmt.Errorf("sms.account_sid and sms.auth_token must be configured")
		}
		if c.SMS.FromNumber == "" || c.SMS.ToNumber == "" {
			return fmt.Errorf("sms.from_number and sms.to_number must be configured")
		}
	}
	if c.Email.Enabled {
		if c.Email.APIKey == "" {
			return fmt.Errorf("email.api_key must be configured")
		}
		if c.Email.ToEmail == "" || c.Email.FromEmail == "" {
			return fmt.Errorf("email.to_email and email.from_email must be configured")
		}
	}
	switch c.State.Backend {
	case "file", "":
		if c.State.Path == "" {
			return fmt.Errorf("state.path is required for the file backend")
		}
	case "postgres":
		if c.State.DSN == "" {
			return fmt.Errorf("state.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("state.backend must be file or postgres")
	}
	return nil
}
