package commands

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/repository"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand(opts *rootOptions) *cobra.Command {
	var postgres bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the local store, and optionally the server schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open local store: %w", err)
			}
			defer st.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Local store ready at %s\n", st.cfg.SQLitePath)

			if !postgres {
				return nil
			}

			db, err := sqlx.Connect("pgx", st.cfg.PostgresDSN())
			if err != nil {
				return fmt.Errorf("failed to connect to postgres: %w", err)
			}
			defer db.Close()

			if err := repository.MigratePostgres(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Postgres schema ready on %s:%s/%s\n", st.cfg.DB.Host, st.cfg.DB.Port, st.cfg.DB.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&postgres, "postgres", false, "Also migrate the server database from DB_* settings")
	return cmd
}
