package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

const maxNoiseSeconds = 3600

// NewNoiseCommand creates the noise command
func NewNoiseCommand(opts *rootOptions) *cobra.Command {
	var (
		output  string
		seconds int
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "noise <color|ambient>",
		Short: "Render colored noise or an ambient fallback to a WAV file",
		Long: `Noise renders white, pink, brown, blue or green noise one second at a time
from a single generator. Ambient kinds (rain, ocean, wind, forest, fire, stream)
are rendered in one pass.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if seconds <= 0 || seconds > maxNoiseSeconds {
				return fmt.Errorf("invalid --seconds %d, expected 1-%d", seconds, maxNoiseSeconds)
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".wav"
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			if color, err := synth.ParseNoiseColor(args[0]); err == nil {
				if err := writeNoiseFile(output, color, cfg.SampleRate, seconds, seed); err != nil {
					return err
				}
			} else {
				kind, err := synth.ParseAmbient(args[0])
				if err != nil {
					return errors.Join(synth.ErrUnknownNoiseColor, err)
				}
				buf := synth.SynthesizeAmbient(kind, cfg.SampleRate, float64(seconds), seed)
				if err := writeWAVFile(output, buf); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%ds, %d Hz)\n", output, seconds, cfg.SampleRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to <name>.wav)")
	cmd.Flags().IntVarP(&seconds, "seconds", "s", 30, "Length in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 picks one from the clock)")
	return cmd
}

func writeNoiseFile(path string, color synth.NoiseColor, sampleRate, seconds int, seed int64) error {
	gen, err := synth.NewNoiseGenerator(color, sampleRate, seed)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	frames := seconds * sampleRate
	if err := synth.WriteWAVHeader(w, sampleRate, frames); err != nil {
		return err
	}
	for remaining := frames; remaining > 0; remaining -= sampleRate {
		if err := synth.WritePCM16(w, gen.Fill(min(remaining, sampleRate))); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
