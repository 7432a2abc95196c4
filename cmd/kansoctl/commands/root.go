package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/config"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/workers"
)

type rootOptions struct {
	envFile string
	dbPath  string
	userID  string
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "kansoctl",
		Short:         "Run breathing and focus sessions from the terminal",
		Long:          `kansoctl drives the kanso timers, stats and sound synthesis against a local SQLite store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "Path of an optional .env file")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (defaults to SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", "local", "User the sessions are recorded for")

	rootCmd.AddCommand(NewMigrateCommand(opts))
	rootCmd.AddCommand(NewFocusCommand(opts))
	rootCmd.AddCommand(NewBreatheCommand(opts))
	rootCmd.AddCommand(NewRecordCommand(opts))
	rootCmd.AddCommand(NewStatsCommand(opts))
	rootCmd.AddCommand(NewToneCommand(opts))
	rootCmd.AddCommand(NewNoiseCommand(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.envFile, ".")
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.SQLitePath = o.dbPath
	}
	return cfg, nil
}

// store is the local wiring shared by the commands that touch session data.
type store struct {
	cfg    *config.Config
	db     *sqlx.DB
	stats  *services.StatsService
	streak *workers.StreakWorker
}

func (o *rootOptions) openStore(ctx context.Context) (*store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	db, err := repository.OpenSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	sessions := repository.NewSQLiteSessionRepository(db)
	counters := repository.NewKVCounterStore(repository.NewSQLiteKV(db))
	streak := workers.NewStreakWorker(sessions, counters, nil, cfg.Location())

	return &store{
		cfg:    cfg,
		db:     db,
		stats:  services.NewStatsService(sessions, counters, nil, streak, cfg.Location()),
		streak: streak,
	}, nil
}

// refreshStreak runs the snapshot update inline since nothing drains the
// worker queue in a short lived process.
func (s *store) refreshStreak(ctx context.Context, userID string) {
	if _, err := s.streak.Recompute(ctx, userID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: streak not updated: %v\n", err)
	}
}

func (s *store) Close() error {
	return s.db.Close()
}
