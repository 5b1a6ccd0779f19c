package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/revstore/internal/core/domain"
)

var getCmd = &cobra.Command{
	Use:   "get [type] [id]",
	Short: "Print a stored resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

// getVersion selects a historical version.
var getVersion string

func init() {
	getCmd.Flags().StringVar(&getVersion, "version", "", "Version to read (default current)")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return errNotConfigured
	}

	ctx := cmd.Context()
	var resource *domain.Resource
	var err error
	if getVersion != "" {
		resource, err = resourceService.VRead(ctx, args[0], args[1], getVersion)
	} else {
		resource, err = resourceService.Get(ctx, args[0], args[1])
	}
	if err != nil {
		return describeError(err)
	}

	out, err := json.MarshalIndent(resource.Body(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render resource: %w", err)
	}
	cmd.Println(string(out))
	return nil
}
