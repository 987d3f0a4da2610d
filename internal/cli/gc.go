package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var (
	gcRetentionDays int
	gcDryRun        bool
)

// gcCmd represents the gc command.
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete commits past the retention horizon and reclaim their chunks",
	Long: `GC deletes every indexed commit older than the retention window that is
not a repository's latest completed commit, along with the chunks only it
references. --dry-run reports what would be deleted without deleting it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return wrapErr(err)
		}
		defer a.Close()

		retention := gcRetentionDays
		if !cmd.Flags().Changed("retention-days") {
			retention = a.Config.GC.RetentionDays
		}

		result, err := a.Collector().Run(context.Background(), retention, gcDryRun)
		if err != nil {
			return wrapErr(err)
		}

		return print(true, "", result)
	},
}

func init() {
	gcCmd.Flags().IntVar(&gcRetentionDays, "retention-days", 0, "override gc.retentionDays from configuration")
	gcCmd.Flags().BoolVar(&gcDryRun, "dry-run", false, "report what would be deleted without deleting it")
	rootCmd.AddCommand(gcCmd)
}
