// Package cli implements the revstore command line.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/revstore/internal/core/ports/driving"
	"github.com/custodia-labs/revstore/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Options holds the global flags.
type Options struct {
	Verbose   bool
	ConfigDir string
	DataDir   string
	Backend   string
}

// Services holds the driving ports the commands call.
type Services struct {
	Upsert    driving.UpsertService
	Resources driving.ResourceService
	Settings  driving.SettingsService
}

// Bootstrap builds the services for the parsed global flags. The returned
// cleanup func runs after the command finishes.
type Bootstrap func(opts Options) (*Services, func(), error)

var (
	opts      Options
	bootstrap Bootstrap
	cleanup   func()

	upsertService   driving.UpsertService
	resourceService driving.ResourceService
	settingsService driving.SettingsService
)

var errNotConfigured = errors.New("services not configured")

var rootCmd = &cobra.Command{
	Use:   "revstore",
	Short: "Versioned resource store",
	Long: `revstore saves versioned resources to a document store. Every write is
conditional on the stored version, superseded revisions can be kept as history,
and each committed write publishes a change notification.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default ~/.revstore)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Data directory for the sqlite backend (default ~/.revstore/data)")
	rootCmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "Storage backend: sqlite, memory or mongo (overrides storage.backend)")
}

// SetBootstrap registers the function that builds services once flags are parsed.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects services directly.
func SetServices(s *Services) {
	if s == nil {
		upsertService, resourceService, settingsService = nil, nil, nil
		return
	}
	upsertService, resourceService, settingsService = s.Upsert, s.Resources, s.Settings
}

// Execute runs the root command and releases whatever the bootstrap
// opened, whether or not the command succeeded.
func Execute() error {
	defer release()
	return rootCmd.Execute()
}

func release() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)

	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	s, c, err := bootstrap(opts)
	if err != nil {
		return err
	}
	SetServices(s)
	cleanup = c
	return nil
}
