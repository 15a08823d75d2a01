package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"borrow-rate-alerts/internal/engine"
)

const ctokenPath = "/ctoken"

var decHundred = decimal.NewFromInt(100)

// CompoundOptions parameterise the Compound API fetcher.
type CompoundOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Compound fetches borrow rates from the Compound v2 ctoken endpoint.
type Compound struct {
	opts    CompoundOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCompound constructs a Compound API fetcher.
func NewCompound(opts CompoundOptions, logger zerolog.Logger) *Compound {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.compound.finance/api/v2"
	}

	return &Compound{
		opts:    opts,
		logger:  logger.With().Str("component", "compound_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchRates retrieves every listed market and returns a snapshot keyed by
// underlying asset name, with borrow rates as percentages rounded to two
// decimal places.
func (c *Compound) FetchRates(ctx context.Context) (engine.RateSnapshot, error) {
	endpoint := c.baseURL + ctokenPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch ctoken rates: %w", err)
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ctoken response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payloadBytes)
	}

	var payload ctokenResponse
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return nil, fmt.Errorf("decode ctoken response: %w", err)
	}
	if len(payload.CToken) == 0 {
		return nil, errors.New("ctoken response contained no markets")
	}

	snapshot := make(engine.RateSnapshot, len(payload.CToken))
	for _, tok := range payload.CToken {
		if tok.UnderlyingName == "" {
			continue
		}
		value, err := decimal.NewFromString(tok.BorrowRate.Value)
		if err != nil {
			return nil, fmt.Errorf("parse borrow rate for %s: %w", tok.UnderlyingName, err)
		}
		snapshot[tok.UnderlyingName] = value.Mul(decHundred).Round(2)
	}

	c.logger.Debug().Int("markets", len(snapshot)).Msg("fetched borrow rates")
	return snapshot, nil
}

type ctokenResponse struct {
	CToken []struct {
		UnderlyingName string `json:"underlying_name"`
		Symbol         string `json:"symbol"`
		BorrowRate     struct {
			Value string `json:"value"`
		} `json:"borrow_rate"`
	} `json:"cToken"`
}

type errorResponse struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("compound api error (%d): %s", status, apiErr.Message)
	}
	if len(payload) > 0 {
		return fmt.Errorf("compound api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("compound api error (%d)", status)
}

var _ RateFetcher = (*Compound)(nil)
