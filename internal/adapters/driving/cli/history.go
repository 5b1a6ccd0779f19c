package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [type] [id]",
	Short: "List the stored versions of a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return errNotConfigured
	}

	revisions, err := resourceService.History(cmd.Context(), args[0], args[1])
	if err != nil {
		return describeError(err)
	}

	cmd.Printf("History of %s/%s:\n\n", args[0], args[1])
	for _, r := range revisions {
		cmd.Printf("  version %-6s %s\n", r.VersionID, r.LastUpdated.UTC().Format(time.RFC3339))
	}
	cmd.Printf("\nTotal: %d versions\n", len(revisions))
	return nil
}
