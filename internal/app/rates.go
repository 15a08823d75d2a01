package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	chart "github.com/wcharczuk/go-chart/v2"

	"borrow-rate-alerts/internal/engine"
)

// RatesOptions configure the rates command.
type RatesOptions struct {
	PNGPath string
}

// Rates fetches the current snapshot and prints each market's borrow rate
// next to its configured limit, optionally rendering a PNG comparison chart.
func (a *App) Rates(ctx context.Context, opts RatesOptions) error {
	snapshot, err := a.newFetcher().FetchRates(ctx)
	if err != nil {
		return err
	}

	thresholds := a.thresholdTable()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tBorrow Rate %\tLimit %\tExceeding")

	for _, asset := range sortedAssets(snapshot) {
		rate := snapshot[asset]
		limitCol := "-"
		exceeding := ""
		if limit, ok := thresholds.Lookup(asset); ok {
			limitCol = limit.String()
			if rate.GreaterThan(limit) {
				exceeding = "yes"
			}
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", asset, rate.String(), limitCol, exceeding)
	}
	writer.Flush()

	if opts.PNGPath != "" {
		return writeRatesPNG(opts.PNGPath, snapshot, thresholds)
	}
	return nil
}

func sortedAssets(snapshot engine.RateSnapshot) []string {
	assets := make([]string, 0, len(snapshot))
	for asset := range snapshot {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// writeRatesPNG renders configured markets as grouped bars: observed rate
// next to the configured limit.
func writeRatesPNG(path string, snapshot engine.RateSnapshot, thresholds engine.ThresholdTable) error {
	bars := make([]chart.Value, 0, len(thresholds)*2)
	for _, entry := range thresholds {
		rate, ok := snapshot[entry.Asset]
		if !ok {
			continue
		}
		bars = append(bars,
			chart.Value{Label: entry.Asset, Value: rate.InexactFloat64()},
			chart.Value{Label: entry.Asset + " limit", Value: entry.MaxRate.InexactFloat64()},
		)
	}
	if len(bars) == 0 {
		return fmt.Errorf("no configured markets present in the snapshot")
	}

	graph := chart.BarChart{
		Title:    "Borrow rates vs thresholds (%)",
		Width:    1280,
		Height:   720,
		BarWidth: 48,
		Bars:     bars,
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
