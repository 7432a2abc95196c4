package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

// NewToneCommand creates the tone command
func NewToneCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "tone <cue>",
		Short:     "Render a transition tone to a WAV file",
		Args:      cobra.ExactArgs(1),
		ValidArgs: cueNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cue := synth.Cue(args[0])
			if _, err := synth.Preset(cue); err != nil {
				return fmt.Errorf("%w: %s", err, args[0])
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if output == "" {
				output = args[0] + ".wav"
			}

			buf := synth.RenderCue(cue, cfg.SampleRate)
			if err := writeWAVFile(output, buf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s, %d Hz)\n", output, buf.Duration(), buf.SampleRate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (defaults to <cue>.wav)")
	return cmd
}

func cueNames() []string {
	cues := synth.Cues()
	names := make([]string, len(cues))
	for i, c := range cues {
		names[i] = string(c)
	}
	return names
}

func writeWAVFile(path string, buf synth.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := synth.EncodeWAV(f, buf); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
