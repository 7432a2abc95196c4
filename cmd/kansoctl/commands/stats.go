package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
)

// NewStatsCommand creates the stats command
func NewStatsCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show streaks, totals and per-activity counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "yaml" {
				return fmt.Errorf("unknown format %q, expected text or yaml", format)
			}

			ctx := cmd.Context()
			st, err := opts.openStore(ctx)
			if err != nil {
				return fmt.Errorf("failed to open local store: %w", err)
			}
			defer st.Close()

			summary, err := st.stats.Summary(ctx, opts.userID)
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}

			if format == "yaml" {
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(summary)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or yaml")
	return cmd
}

func printSummary(w io.Writer, s *domain.StatsSummary) {
	fmt.Fprintf(w, "Current streak:     %d days\n", s.CurrentStreak)
	fmt.Fprintf(w, "Longest streak:     %d days\n", s.LongestStreak)
	fmt.Fprintf(w, "Favorite activity:  %s\n", s.FavoriteActivity)
	fmt.Fprintf(w, "Active days:        %d\n", s.TotalActiveDays)
	fmt.Fprintf(w, "Sessions this week: %d\n", s.SessionsThisWeek)
	fmt.Fprintf(w, "Total sessions:     %d\n", s.TotalSessions)
	fmt.Fprintf(w, "Average session:    %s\n", formatClock(int(s.AverageSessionDuration)))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Focus:   %d sessions, %s focused, %d short / %d long breaks\n",
		s.Focus.FocusSessionsCompleted, formatClock(s.Focus.TotalFocusTimeSeconds),
		s.Focus.ShortBreaksCompleted, s.Focus.LongBreaksCompleted)
	fmt.Fprintf(w, "Breathe: %d sessions, %s total\n", s.Breathe.SessionsCompleted, formatClock(s.Breathe.TotalSeconds))
	fmt.Fprintf(w, "Sleep:   %d nights, %.1fh total\n", s.Sleep.NightsLogged, float64(s.Sleep.TotalSeconds)/3600)

	if s.LastActivity != nil {
		fmt.Fprintf(w, "\nLast activity: %s\n", s.LastActivity.Local().Format("2006-01-02 15:04"))
	}
}
