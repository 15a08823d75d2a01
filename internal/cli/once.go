package cli

import (
	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single alerting invocation and exit",
	Long: "Fetches current borrow rates, evaluates thresholds and the cooldown " +
		"window, dispatches notifications if warranted, and exits. Intended " +
		"for cron or any external scheduler. Exits non-zero only when the " +
		"rate fetch itself fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RunOnce(cmd.Context())
	},
}
