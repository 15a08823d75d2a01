package cli

import (
	"github.com/spf13/cobra"

	"borrow-rate-alerts/internal/app"
)

var ratesPNGPath string

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print current borrow rates against configured thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rates(cmd.Context(), app.RatesOptions{PNGPath: ratesPNGPath})
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesPNGPath, "png", "", "Render a bar chart of rates vs limits to this path")
}
