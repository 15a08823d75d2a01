package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var (
	baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cooldown = 2 * time.Hour
)

func table(entries ...Threshold) ThresholdTable {
	return ThresholdTable(entries)
}

func rate(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDecideExceedanceMembership(t *testing.T) {
	rates := RateSnapshot{
		"DAI":  rate("5.5"),
		"USDC": rate("3.0"),
		"WBTC": rate("9.9"),
	}
	thresholds := table(
		Threshold{Asset: "USDC", MaxRate: rate("4.0")},
		Threshold{Asset: "DAI", MaxRate: rate("5.0")},
		Threshold{Asset: "ETH", MaxRate: rate("2.0")},
	)

	d := Decide(rates, thresholds, baseTime.Add(-3*time.Hour), baseTime, cooldown)

	if len(d.Exceeding) != 1 {
		t.Fatalf("expected 1 exceedance, got %d", len(d.Exceeding))
	}
	if d.Exceeding[0].Asset != "DAI" {
		t.Fatalf("expected DAI to exceed, got %s", d.Exceeding[0].Asset)
	}
	if !d.ShouldAlert {
		t.Fatal("expected alert with cooldown elapsed")
	}
}

func TestDecidePreservesTableOrder(t *testing.T) {
	rates := RateSnapshot{
		"ZRX": rate("10"),
		"BAT": rate("10"),
		"DAI": rate("10"),
	}
	thresholds := table(
		Threshold{Asset: "ZRX", MaxRate: rate("1")},
		Threshold{Asset: "DAI", MaxRate: rate("1")},
		Threshold{Asset: "BAT", MaxRate: rate("1")},
	)

	d := Decide(rates, thresholds, baseTime.Add(-3*time.Hour), baseTime, cooldown)

	want := []string{"ZRX", "DAI", "BAT"}
	if len(d.Exceeding) != len(want) {
		t.Fatalf("expected %d exceedances, got %d", len(want), len(d.Exceeding))
	}
	for i, asset := range want {
		if d.Exceeding[i].Asset != asset {
			t.Fatalf("position %d: expected %s, got %s", i, asset, d.Exceeding[i].Asset)
		}
	}
}

func TestDecideEqualRateDoesNotTrigger(t *testing.T) {
	rates := RateSnapshot{"DAI": rate("5.0")}
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	d := Decide(rates, thresholds, baseTime.Add(-3*time.Hour), baseTime, cooldown)

	if len(d.Exceeding) != 0 || d.ShouldAlert {
		t.Fatalf("rate equal to limit must not trigger: %+v", d)
	}
}

func TestDecideCooldownBoundary(t *testing.T) {
	rates := RateSnapshot{"DAI": rate("5.5")}
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	exact := Decide(rates, thresholds, baseTime.Add(-cooldown), baseTime, cooldown)
	if exact.ShouldAlert {
		t.Fatal("elapsed equal to the cooldown must suppress the alert")
	}

	over := Decide(rates, thresholds, baseTime.Add(-cooldown-time.Millisecond), baseTime, cooldown)
	if !over.ShouldAlert {
		t.Fatal("one millisecond beyond the cooldown must alert")
	}
}

func TestDecideFutureLastAlertSuppresses(t *testing.T) {
	rates := RateSnapshot{"DAI": rate("5.5")}
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	d := Decide(rates, thresholds, baseTime.Add(time.Hour), baseTime, cooldown)
	if d.ShouldAlert {
		t.Fatal("future lastAlert yields negative elapsed and must suppress")
	}
}

func TestDecideNoExceedanceRegardlessOfElapsed(t *testing.T) {
	rates := RateSnapshot{"DAI": rate("4.0")}
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	d := Decide(rates, thresholds, baseTime.Add(-100*time.Hour), baseTime, cooldown)
	if d.ShouldAlert || len(d.Exceeding) != 0 {
		t.Fatalf("no exceedance must never alert: %+v", d)
	}
}

func TestDecideSkipsMissingAssets(t *testing.T) {
	rates := RateSnapshot{"USDT": rate("9.0")}
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	d := Decide(rates, thresholds, baseTime.Add(-3*time.Hour), baseTime, cooldown)
	if len(d.Exceeding) != 0 {
		t.Fatalf("assets missing from either side must be skipped: %+v", d)
	}
}

func TestDecideIsPure(t *testing.T) {
	rates := RateSnapshot{"DAI": rate("5.5"), "USDC": rate("6.0")}
	thresholds := table(
		Threshold{Asset: "DAI", MaxRate: rate("5.0")},
		Threshold{Asset: "USDC", MaxRate: rate("5.0")},
	)
	last := baseTime.Add(-3 * time.Hour)

	first := Decide(rates, thresholds, last, baseTime, cooldown)
	second := Decide(rates, thresholds, last, baseTime, cooldown)

	if first.ShouldAlert != second.ShouldAlert || len(first.Exceeding) != len(second.Exceeding) {
		t.Fatalf("identical inputs must yield identical decisions: %+v vs %+v", first, second)
	}
	for i := range first.Exceeding {
		if first.Exceeding[i] != second.Exceeding[i] {
			t.Fatalf("exceedance %d differs between calls", i)
		}
	}
	if len(rates) != 2 || len(thresholds) != 2 {
		t.Fatal("Decide must not mutate its inputs")
	}
}

func TestThresholdTableLookup(t *testing.T) {
	thresholds := table(Threshold{Asset: "DAI", MaxRate: rate("5.0")})

	if limit, ok := thresholds.Lookup("DAI"); !ok || !limit.Equal(rate("5.0")) {
		t.Fatalf("expected DAI limit 5.0, got %s ok=%v", limit, ok)
	}
	if _, ok := thresholds.Lookup("ETH"); ok {
		t.Fatal("unknown asset must not resolve")
	}
}
