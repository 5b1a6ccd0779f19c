package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/revstore/internal/core/ports/driving"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
	Long: `Show the settings revstore reads from its config file, or change one.

Write policies can be set for every type (policy.keep_history) or for one
type (policy.types.Patient.keep_history). Policy changes apply to the next
write without a restart.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	cmd.Printf("Settings (%s)\n\n", settingsService.Path())
	for _, s := range settingsService.List() {
		cmd.Printf("  %-34s %s\n", s.Key, formatSetting(s))
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	s, err := settingsService.Get(args[0])
	if err != nil {
		return err
	}
	cmd.Println(formatSetting(*s))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNotConfigured
	}

	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	s, err := settingsService.Get(args[0])
	if err != nil {
		return err
	}
	cmd.Printf("%s = %s\n", s.Key, formatSetting(*s))
	return nil
}

func formatSetting(s driving.Setting) string {
	if s.Value == nil {
		return fmt.Sprintf("(default: %s)", s.Default)
	}
	return fmt.Sprintf("%v", s.Value)
}
