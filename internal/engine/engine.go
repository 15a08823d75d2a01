package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSnapshot maps an asset name to its observed borrow rate, expressed as
// a percentage rounded to two decimal places. Built fresh on every run.
type RateSnapshot map[string]decimal.Decimal

// Threshold pairs an asset with the maximum borrow rate the operator will
// tolerate before being notified.
type Threshold struct {
	Asset   string
	MaxRate decimal.Decimal
}

// ThresholdTable is an ordered list of per-asset limits. Order is the
// operator's declaration order and defines the order of exceedances.
type ThresholdTable []Threshold

// Lookup returns the configured limit for an asset, if any.
func (t ThresholdTable) Lookup(asset string) (decimal.Decimal, bool) {
	for _, entry := range t {
		if entry.Asset == asset {
			return entry.MaxRate, true
		}
	}
	return decimal.Decimal{}, false
}

// Exceedance records one asset whose observed rate crossed its limit.
type Exceedance struct {
	Asset string
	Rate  decimal.Decimal
	Limit decimal.Decimal
}

// Decision is the outcome of one evaluation.
type Decision struct {
	ShouldAlert bool
	Exceeding   []Exceedance
}

// Decide evaluates a snapshot against the threshold table and the cooldown
// window. It is a pure function: all side effects (notification, state
// persistence) belong to the caller, and only when ShouldAlert is true.
//
// An asset contributes an exceedance only when it appears in both the
// snapshot and the table with rate strictly above the limit; assets missing
// from either side are skipped. The cooldown gate is strict as well: an
// elapsed time exactly equal to the window suppresses the alert. The
// subtraction now-lastAlert is taken raw, so a lastAlert in the future
// yields a negative elapsed and suppresses alerting.
func Decide(rates RateSnapshot, thresholds ThresholdTable, lastAlert, now time.Time, cooldown time.Duration) Decision {
	var exceeding []Exceedance

	for _, entry := range thresholds {
		rate, ok := rates[entry.Asset]
		if !ok {
			continue
		}
		if rate.GreaterThan(entry.MaxRate) {
			exceeding = append(exceeding, Exceedance{
				Asset: entry.Asset,
				Rate:  rate,
				Limit: entry.MaxRate,
			})
		}
	}

	elapsed := now.Sub(lastAlert)

	return Decision{
		ShouldAlert: len(exceeding) > 0 && elapsed > cooldown,
		Exceeding:   exceeding,
	}
}
