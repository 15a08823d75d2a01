package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var simulateRates []string

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Run the full alert pipeline against fixed rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(simulateRates) == 0 {
			return errors.New("at least one --rate asset=value is required")
		}

		rates := make(map[string]float64, len(simulateRates))
		for _, pair := range simulateRates {
			asset, value, ok := strings.Cut(pair, "=")
			if !ok || asset == "" {
				return fmt.Errorf("invalid --rate %q, expected asset=value", pair)
			}
			rate, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("invalid rate for %s: %w", asset, err)
			}
			rates[asset] = rate
		}

		return getApp().SimulateAlert(cmd.Context(), rates)
	},
}

func init() {
	simulateCmd.Flags().StringSliceVar(&simulateRates, "rate", nil, "Simulated borrow rate as asset=percent (repeatable)")
}
