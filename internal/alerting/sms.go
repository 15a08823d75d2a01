package alerting

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SMSOptions parameterise the Twilio SMS channel.
type SMSOptions struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	ToNumber   string
	APIBase    string
	Timeout    time.Duration
}

// SMSNotifier delivers alerts as text messages via the Twilio REST API.
type SMSNotifier struct {
	opts    SMSOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewSMSNotifier constructs a Twilio-backed notifier.
func NewSMSNotifier(opts SMSOptions, logger zerolog.Logger) *SMSNotifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	baseURL := strings.TrimRight(opts.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}

	return &SMSNotifier{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "alert_sms").Logger(),
	}
}

// Name identifies the channel in logs.
func (n *SMSNotifier) Name() string { return "sms" }

// Notify posts a form-encoded message to the Twilio Messages endpoint.
func (n *SMSNotifier) Notify(ctx context.Context, message string) error {
	form := url.Values{}
	form.Set("Body", subject+"\n"+message)
	form.Set("From", n.opts.FromNumber)
	form.Set("To", n.opts.ToNumber)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", n.baseURL, n.opts.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create sms request: %w", err)
	}
	req.SetBasicAuth(n.opts.AccountSID, n.opts.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n.logger.Debug().Int("status", resp.StatusCode).Msg("sms accepted")
	return nil
}

var _ Notifier = (*SMSNotifier)(nil)
