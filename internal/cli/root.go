// Package cli implements the trialhub command line: the HTTP server, schema
// migrations, fixture seeding, token minting and experiment listing.
package cli

import (
	"github.com/preemptiveoop/trialhub/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// NewRootCommand builds the trialhub command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "trialhub",
		Short: "Crowd-sourced experiment tracking",
		Long: `trialhub stores experiments and the trials contributed to them.

Configuration is read from config.yaml (or --config) and TRIALHUB_* environment
variables, e.g. TRIALHUB_DATABASE_URL and TRIALHUB_AUTH_JWT_SECRET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "",
		"path to a config file (default ./config.yaml when present)")

	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(opts),
		newSeedCommand(opts),
		newTokenCommand(opts),
		newListCommand(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadWithOptions(config.Options{ConfigFile: o.configFile})
	}
	return config.Load()
}
