package cli

import (
	"github.com/spf13/cobra"
)

var policyCmd = &cobra.Command{
	Use:   "policy [type]",
	Short: "Show the write policy for a resource type",
	Args:  cobra.ExactArgs(1),
	RunE:  runPolicy,
}

func init() {
	rootCmd.AddCommand(policyCmd)
}

func runPolicy(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return errNotConfigured
	}

	p, err := resourceService.Policy(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Policy for %s:\n\n", args[0])
	cmd.Printf("  Require ETag:   %t\n", p.RequireETag)
	cmd.Printf("  Update-create:  %t\n", p.UpdateCreate)
	cmd.Printf("  Keep history:   %t\n", p.KeepHistory)
	return nil
}
