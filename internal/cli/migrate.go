package cli

import (
	"fmt"
	"os"

	"github.com/preemptiveoop/trialhub/internal/platform/postgres"
	"github.com/preemptiveoop/trialhub/internal/redact"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate [up|down|status|version|reset]",
		Short: "Run database migrations",
		Long: `Run the embedded goose migrations against the configured database.

Without arguments, applies every pending migration (up).

Examples:
  trialhub migrate          # apply pending migrations
  trialhub migrate down     # roll back the latest migration
  trialhub migrate status   # list applied and pending migrations`,
		Args: cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{
			postgres.MigrateUp,
			postgres.MigrateDown,
			postgres.MigrateStatus,
			postgres.MigrateVersion,
			postgres.MigrateReset,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := postgres.MigrateUp
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := opts.setup(os.Stderr)
			if err != nil {
				return err
			}

			log.Info("connecting to database", "url", redact.URL(cfg.Database.URL))
			db, err := postgres.Open(cmd.Context(), cfg.Database, log)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer func() { _ = db.Close() }()

			if err := postgres.Migrate(cmd.Context(), db, command, log); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			return nil
		},
	}
}
