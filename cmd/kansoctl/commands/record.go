package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

// NewRecordCommand creates the record command
func NewRecordCommand(opts *rootOptions) *cobra.Command {
	var breakKind string

	cmd := &cobra.Command{
		Use:   "record <activity> <seconds>",
		Short: "Record a session that happened away from the timers",
		Long: `Record adds a finished breathe, focus, rest or sleep session.
Sessions shorter than 30 seconds only add to the time totals.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			activity, err := domain.ParseActivityType(args[0])
			if err != nil {
				return err
			}
			seconds, err := strconv.Atoi(args[1])
			if err != nil || seconds < 0 {
				return fmt.Errorf("invalid duration %q, expected whole seconds", args[1])
			}

			kind := domain.BreakKind(breakKind)
			switch kind {
			case domain.BreakNone, domain.BreakShort, domain.BreakLong:
			default:
				return fmt.Errorf("invalid break kind %q, expected short or long", breakKind)
			}

			ctx := cmd.Context()
			st, err := opts.openStore(ctx)
			if err != nil {
				return fmt.Errorf("failed to open local store: %w", err)
			}
			defer st.Close()

			in := domain.ActivityInput{
				UserID:   opts.userID,
				Activity: activity,
				Duration: time.Duration(seconds) * time.Second,
				Break:    kind,
			}
			if err := st.stats.RecordActivity(ctx, in); err != nil {
				return fmt.Errorf("failed to record session: %w", err)
			}
			st.refreshStreak(ctx, opts.userID)

			if seconds < domain.MinCompletedSessionSeconds {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %ds of %s to your totals (too short to count as a session)\n", seconds, activity)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s session of %s\n", activity, formatClock(seconds))
			return nil
		},
	}

	cmd.Flags().StringVar(&breakKind, "break", "", "Break kind for rest sessions (short or long)")
	return cmd
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
