package synth

import (
	"errors"
	"sort"
)

var ErrUnknownCue = errors.New("unknown sound cue")

type Cue string

const (
	CueStart   Cue = "start"
	CueEnd     Cue = "end"
	CueBell    Cue = "bell"
	CueGong    Cue = "gong"
	CueInhale  Cue = "inhale"
	CueHoldIn  Cue = "hold_in"
	CueExhale  Cue = "exhale"
	CueHoldOut Cue = "hold_out"
)

var bellPartials = []Partial{
	{Multiplier: 1.0, Amplitude: 1.0, Decay: 1.5},
	{Multiplier: 2.76, Amplitude: 0.5, Decay: 2.2},
	{Multiplier: 5.40, Amplitude: 0.25, Decay: 3.5},
	{Multiplier: 8.93, Amplitude: 0.12, Decay: 5.0},
}

var gongPartials = []Partial{
	{Multiplier: 1.0, Amplitude: 1.0, Decay: 0.6},
	{Multiplier: 1.48, Amplitude: 0.7, Decay: 0.8},
	{Multiplier: 2.10, Amplitude: 0.5, Decay: 1.1},
	{Multiplier: 2.87, Amplitude: 0.35, Decay: 1.4},
	{Multiplier: 3.94, Amplitude: 0.2, Decay: 2.0},
}

func bell(fundamental, seconds, volume float64) ToneSpec {
	return ToneSpec{
		Fundamental:   fundamental,
		Duration:      seconds,
		Volume:        volume,
		Partials:      bellPartials,
		Attack:        0.02,
		FadeFrom:      0.7,
		Normalization: 0.18,
	}
}

func gong(fundamental, seconds, volume float64) ToneSpec {
	return ToneSpec{
		Fundamental:   fundamental,
		Duration:      seconds,
		Volume:        volume,
		Partials:      gongPartials,
		Attack:        0.1,
		Normalization: 0.15,
	}
}

var presets = map[Cue]ToneSpec{
	CueBell:    bell(528, 2.5, 0.8),
	CueGong:    gong(110, 4.0, 0.9),
	CueStart:   bell(660, 1.5, 0.7),
	CueEnd:     gong(196, 3.0, 0.8),
	CueInhale:  bell(396, 1.2, 0.5),
	CueHoldIn:  bell(528, 0.8, 0.4),
	CueExhale:  bell(324, 1.2, 0.5),
	CueHoldOut: bell(264, 0.8, 0.4),
}

func Preset(cue Cue) (ToneSpec, error) {
	spec, ok := presets[cue]
	if !ok {
		return ToneSpec{}, ErrUnknownCue
	}
	return spec, nil
}

func Cues() []Cue {
	out := make([]Cue, 0, len(presets))
	for c := range presets {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderCue synthesizes a preset; unknown cues render silence.
func RenderCue(cue Cue, sampleRate int) Buffer {
	spec, err := Preset(cue)
	if err != nil {
		return Buffer{SampleRate: sampleRate}
	}
	return SynthesizeTone(sampleRate, spec)
}
