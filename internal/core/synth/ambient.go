package synth

import (
	"errors"
	"math"
	"math/rand"
	"strings"
)

var ErrUnknownAmbient = errors.New("unknown ambient sound")

type Ambient string

const (
	AmbientRain   Ambient = "rain"
	AmbientOcean  Ambient = "ocean"
	AmbientWind   Ambient = "wind"
	AmbientForest Ambient = "forest"
	AmbientFire   Ambient = "fire"
	AmbientStream Ambient = "stream"
)

type sine struct {
	freq float64
	amp  float64
}

// ambientModel is a sum of low-frequency sines, optionally swelled by a slow
// envelope, plus a little random jitter.
type ambientModel struct {
	tones  []sine
	swell  float64
	jitter float64
}

var ambientModels = map[Ambient]ambientModel{
	AmbientRain:   {tones: []sine{{180, 0.10}, {320, 0.08}, {640, 0.05}}, jitter: 0.25},
	AmbientOcean:  {tones: []sine{{60, 0.25}, {90, 0.15}}, swell: 0.1, jitter: 0.08},
	AmbientWind:   {tones: []sine{{110, 0.12}, {165, 0.08}}, swell: 0.25, jitter: 0.12},
	AmbientForest: {tones: []sine{{220, 0.06}, {2200, 0.03}}, jitter: 0.05},
	AmbientFire:   {tones: []sine{{80, 0.15}, {140, 0.06}}, jitter: 0.2},
	AmbientStream: {tones: []sine{{300, 0.08}, {450, 0.06}, {900, 0.03}}, swell: 0.5, jitter: 0.15},
}

func ParseAmbient(s string) (Ambient, error) {
	a := Ambient(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := ambientModels[a]; !ok {
		return "", ErrUnknownAmbient
	}
	return a, nil
}

// SynthesizeAmbient renders the fallback used when no recorded loop exists
// for the ambient sound.
func SynthesizeAmbient(kind Ambient, sampleRate int, seconds float64, seed int64) Buffer {
	model, ok := ambientModels[kind]
	n, valid := frameCount(sampleRate, seconds)
	if !ok || !valid {
		return Buffer{SampleRate: sampleRate}
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n)
	sr := float64(sampleRate)

	for i := range out {
		t := float64(i) / sr

		var v float64
		for _, s := range model.tones {
			v += math.Sin(2*math.Pi*s.freq*t) * s.amp
		}
		if model.swell > 0 {
			v *= 0.6 + 0.4*math.Sin(2*math.Pi*model.swell*t)
		}
		v += (rng.Float64()*2 - 1) * model.jitter

		out[i] = clamp(v * 0.7)
	}
	return Buffer{SampleRate: sampleRate, Samples: out}
}
