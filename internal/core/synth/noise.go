package synth

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
)

var ErrUnknownNoiseColor = errors.New("unknown noise color")

type NoiseColor string

const (
	NoiseWhite NoiseColor = "white"
	NoisePink  NoiseColor = "pink"
	NoiseBrown NoiseColor = "brown"
	NoiseBlue  NoiseColor = "blue"
	NoiseGreen NoiseColor = "green"
)

func ParseNoiseColor(s string) (NoiseColor, error) {
	c := NoiseColor(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := noiseModels[c]; !ok {
		return "", ErrUnknownNoiseColor
	}
	return c, nil
}

type noiseModel struct {
	attenuation float64
	next        func(g *NoiseGenerator, white, t float64) float64
}

var noiseModels = map[NoiseColor]noiseModel{
	NoiseWhite: {
		attenuation: 0.3,
		next: func(_ *NoiseGenerator, white, _ float64) float64 {
			return white
		},
	},
	NoisePink: {
		attenuation: 0.8,
		next: func(g *NoiseGenerator, white, _ float64) float64 {
			g.state = (g.state + white*0.1) * 0.9
			return g.state
		},
	},
	NoiseBrown: {
		attenuation: 0.5,
		next: func(g *NoiseGenerator, white, _ float64) float64 {
			g.state = (g.state + white*0.02) * 0.99
			return g.state
		},
	},
	NoiseBlue: {
		attenuation: 0.6,
		next: func(_ *NoiseGenerator, white, t float64) float64 {
			return math.Sin(2*math.Pi*4000*t)*0.1 + math.Sin(2*math.Pi*8000*t)*0.05 + white*0.1
		},
	},
	NoiseGreen: {
		attenuation: 0.6,
		next: func(_ *NoiseGenerator, white, t float64) float64 {
			return math.Sin(2*math.Pi*500*t)*0.2 + math.Sin(2*math.Pi*1000*t)*0.1 + white*0.05
		},
	},
}

// NoiseGenerator produces consecutive buffers of one noise color. Pink and
// brown keep their filter state between Fill calls so chunk boundaries are
// seamless; the frame counter keeps sine components phase-continuous.
type NoiseGenerator struct {
	mu         sync.Mutex
	color      NoiseColor
	model      noiseModel
	sampleRate int
	rng        *rand.Rand
	state      float64
	frame      int64
}

func NewNoiseGenerator(color NoiseColor, sampleRate int, seed int64) (*NoiseGenerator, error) {
	model, ok := noiseModels[color]
	if !ok {
		return nil, ErrUnknownNoiseColor
	}
	return &NoiseGenerator{
		color:      color,
		model:      model,
		sampleRate: sampleRate,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

func (g *NoiseGenerator) Color() NoiseColor {
	return g.color
}

// State is the running filter state after the last generated sample.
func (g *NoiseGenerator) State() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *NoiseGenerator) Fill(frames int) Buffer {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.sampleRate <= 0 || frames < 0 || frames > maxFrames {
		return Buffer{SampleRate: g.sampleRate}
	}

	out := make([]float32, frames)
	sr := float64(g.sampleRate)
	for i := range out {
		white := g.rng.Float64()*2 - 1
		t := float64(g.frame) / sr
		out[i] = clamp(g.model.next(g, white, t) * g.model.attenuation)
		g.frame++
	}
	return Buffer{SampleRate: g.sampleRate, Samples: out}
}
