package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

// NewBreatheCommand creates the breathe command
func NewBreatheCommand(opts *rootOptions) *cobra.Command {
	var cycles int

	cmd := &cobra.Command{
		Use:   "breathe",
		Short: "Run a guided 4-2-4-2 breathing session",
		Long: `Breathe prints each inhale, hold and exhale phase and records the session
after the requested number of cycles, or when interrupted with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cycles < 0 {
				return fmt.Errorf("invalid --cycles %d", cycles)
			}

			st, err := opts.openStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to open local store: %w", err)
			}
			defer st.Close()

			out := &eventPrinter{w: cmd.OutOrStdout()}
			bt := timer.NewBreathingTimer(opts.userID, timer.DefaultPattern(), 0, timer.Deps{
				NewTicker: newTicker,
				Recorder:  st.stats,
				Cues:      out,
			})

			done := make(chan struct{}, 1)
			bt.Subscribe(func(e timer.Event) {
				if cycles > 0 && e.Type == timer.EventPhaseChange && e.Cycles >= cycles {
					select {
					case done <- struct{}{}:
					default:
					}
					return
				}
				out.breathingEvent(e)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bt.Start()
			select {
			case <-done:
			case <-ctx.Done():
			}
			bt.Stop()

			st.refreshStreak(context.WithoutCancel(cmd.Context()), opts.userID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&cycles, "cycles", "c", 4, "Cycles to run (0 runs until interrupted)")
	return cmd
}
