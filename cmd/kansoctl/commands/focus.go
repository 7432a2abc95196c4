package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

// NewFocusCommand creates the focus command
func NewFocusCommand(opts *rootOptions) *cobra.Command {
	var (
		auto    bool
		mode    string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Run a Pomodoro session",
		Long: `Focus runs one work or break session and records it when it ends.
With --auto it keeps cycling work and breaks until interrupted with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := timer.ParseMode(mode)
			if err != nil {
				return err
			}
			if minutes < 0 {
				return fmt.Errorf("invalid --minutes %d", minutes)
			}

			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open local store: %w", err)
			}
			defer st.Close()

			settings := st.cfg.FocusSettings()
			settings.AutoCycle = settings.AutoCycle || auto
			if minutes > 0 {
				d := time.Duration(minutes) * time.Minute
				switch m {
				case timer.ModeWork:
					settings.Durations.Work = d
				case timer.ModeShortBreak:
					settings.Durations.ShortBreak = d
				case timer.ModeLongBreak:
					settings.Durations.LongBreak = d
				}
			}

			out := &eventPrinter{w: cmd.OutOrStdout()}
			ft := timer.NewFocusTimer(opts.userID, settings, timer.Deps{
				NewTicker: newTicker,
				Recorder:  st.stats,
				Cues:      out,
			})

			done := make(chan struct{}, 1)
			ft.Subscribe(func(e timer.Event) {
				out.focusEvent(e)
				if e.Type == timer.EventCompleted && !settings.AutoCycle {
					select {
					case done <- struct{}{}:
					default:
					}
				}
			})

			if !settings.AutoCycle && m != timer.ModeWork {
				if err := ft.SelectMode(m); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ft.Start()
			select {
			case <-done:
			case <-ctx.Done():
				ft.Reset()
			}

			st.refreshStreak(context.WithoutCancel(cmd.Context()), opts.userID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "Cycle work and breaks automatically until interrupted")
	cmd.Flags().StringVar(&mode, "mode", string(timer.ModeWork), "Session to run: work, short_break or long_break")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Override the length of the selected session")
	return cmd
}
