package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const mailSendPath = "/v3/mail/send"

// EmailOptions parameterise the SendGrid email channel.
type EmailOptions struct {
	APIKey    string
	ToEmail   string
	FromEmail string
	APIBase   string
	Timeout   time.Duration
}

// EmailNotifier delivers alerts via the SendGrid transactional mail API.
type EmailNotifier struct {
	opts    EmailOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewEmailNotifier constructs a SendGrid-backed notifier.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	baseURL := strings.TrimRight(opts.APIBase, "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}

	return &EmailNotifier{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "alert_email").Logger(),
	}
}

// Name identifies the channel in logs.
func (n *EmailNotifier) Name() string { return "email" }

type mailRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             mailAddress       `json:"from"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To      []mailAddress `json:"to"`
	Subject string        `json:"subject"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Notify posts an HTML mail to the SendGrid send endpoint. SendGrid answers
// an accepted send with an empty body, so any non-empty body is an error signal.
func (n *EmailNotifier) Notify(ctx context.Context, message string) error {
	payload := mailRequest{
		Personalizations: []personalization{
			{
				To:      []mailAddress{{Email: n.opts.ToEmail}},
				Subject: subject,
			},
		},
		From: mailAddress{Email: n.opts.FromEmail, Name: "Alerting & Monitoring"},
		Content: []mailContent{
			{
				Type:  "text/html",
				Value: fmt.Sprintf("<p>%s</p><p>%s</p>", subject, message),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+mailSendPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if len(respBody) > 0 {
		return fmt.Errorf("mail provider reported: %s", strings.TrimSpace(string(respBody)))
	}

	n.logger.Debug().Int("status", resp.StatusCode).Msg("mail accepted")
	return nil
}

var _ Notifier = (*EmailNotifier)(nil)
