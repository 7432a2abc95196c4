// Package synth renders transition tones, colored noise and ambient fallbacks
// into mono PCM buffers without any recorded assets.
package synth

import (
	"math"
	"time"
)

const (
	DefaultSampleRate = 44100

	// maxFrames bounds a single allocation to ten minutes at 48kHz.
	maxFrames = 48000 * 600
)

type Buffer struct {
	SampleRate int
	Samples    []float32
}

func (b Buffer) Len() int {
	return len(b.Samples)
}

func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Partial is one inharmonic overtone of a tone.
type Partial struct {
	Multiplier float64
	Amplitude  float64
	Decay      float64
}

type ToneSpec struct {
	Fundamental float64
	Duration    float64
	Volume      float64
	Partials    []Partial

	// Attack is the smoothstep ramp length in seconds.
	Attack float64

	// FadeFrom is the progress fraction after which a quadratic fade-out
	// starts. Zero disables the fade.
	FadeFrom float64

	Normalization float64
}

func frameCount(sampleRate int, seconds float64) (int, bool) {
	if sampleRate <= 0 || seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false
	}
	n := math.Round(seconds * float64(sampleRate))
	if n > maxFrames {
		return 0, false
	}
	return int(n), true
}

func smoothstep(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	return x * x * (3 - 2*x)
}

func fadeOut(progress, from float64) float64 {
	if from <= 0 || from >= 1 || progress <= from {
		return 1
	}
	r := (progress - from) / (1 - from)
	if r >= 1 {
		return 0
	}
	return (1 - r) * (1 - r)
}

func clamp(v float64) float32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return float32(v)
}

// SynthesizeTone renders spec at sampleRate. An unusable format yields an
// empty buffer rather than an error so callers simply stay silent.
func SynthesizeTone(sampleRate int, spec ToneSpec) Buffer {
	n, ok := frameCount(sampleRate, spec.Duration)
	if !ok {
		return Buffer{SampleRate: sampleRate}
	}

	out := make([]float32, n)
	sr := float64(sampleRate)

	for i := 0; i < n; i++ {
		t := float64(i) / sr
		progress := float64(i) / float64(n)

		attack := 1.0
		if spec.Attack > 0 && t < spec.Attack {
			attack = smoothstep(t / spec.Attack)
		}

		var sample float64
		for _, p := range spec.Partials {
			sample += math.Sin(2*math.Pi*spec.Fundamental*p.Multiplier*t) *
				p.Amplitude * math.Exp(-p.Decay*t) * attack
		}

		out[i] = clamp(sample * spec.Volume * fadeOut(progress, spec.FadeFrom) * spec.Normalization)
	}

	return Buffer{SampleRate: sampleRate, Samples: out}
}
