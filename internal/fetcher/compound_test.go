package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestCompound(baseURL string) *Compound {
	return NewCompound(CompoundOptions{
		BaseURL:   baseURL,
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestCompoundFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ctoken" {
			t.Fatalf("expected /ctoken path, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cToken": []map[string]any{
				{
					"underlying_name": "Dai",
					"symbol":          "cDAI",
					"borrow_rate":     map[string]string{"value": "0.055"},
				},
				{
					"underlying_name": "USD Coin",
					"symbol":          "cUSDC",
					"borrow_rate":     map[string]string{"value": "0.031449"},
				},
			},
		})
	}))
	defer srv.Close()

	snapshot, err := newTestCompound(srv.URL).FetchRates(context.Background())
	if err != nil {
		t.Fatalf("successful response should not error: %v", err)
	}

	if got := snapshot["Dai"]; !got.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("expected Dai rate 5.5, got %s", got)
	}
	if got := snapshot["USD Coin"]; !got.Equal(decimal.RequireFromString("3.14")) {
		t.Fatalf("expected USD Coin rate rounded to 3.14, got %s", got)
	}
}

func TestCompoundFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]any{"error_code": 1, "message": "down"})
	}))
	defer srv.Close()

	if _, err := newTestCompound(srv.URL).FetchRates(context.Background()); err == nil {
		t.Fatal("non-2xx status must return an error")
	}
}

func TestCompoundFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	if _, err := newTestCompound(srv.URL).FetchRates(context.Background()); err == nil {
		t.Fatal("malformed body must return an error")
	}
}

func TestCompoundFetchEmptyMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"cToken": []any{}})
	}))
	defer srv.Close()

	if _, err := newTestCompound(srv.URL).FetchRates(context.Background()); err == nil {
		t.Fatal("empty market list must return an error")
	}
}

func TestCompoundFetchBadRateValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"cToken": []map[string]any{
				{
					"underlying_name": "Dai",
					"borrow_rate":     map[string]string{"value": "not-a-number"},
				},
			},
		})
	}))
	defer srv.Close()

	if _, err := newTestCompound(srv.URL).FetchRates(context.Background()); err == nil {
		t.Fatal("unparseable borrow rate must return an error")
	}
}
