package http

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

const (
	defaultAudioSeconds = 30
	maxAudioSeconds     = 600
	wavContentType      = "audio/wav"
)

type ToneSource interface {
	WAV(ctx context.Context, cue synth.Cue) ([]byte, error)
}

type AudioHandler struct {
	tones      ToneSource
	sampleRate int
	seed       func() int64
}

func NewAudioHandler(tones ToneSource, sampleRate int) *AudioHandler {
	if sampleRate <= 0 {
		sampleRate = synth.DefaultSampleRate
	}
	return &AudioHandler{
		tones:      tones,
		sampleRate: sampleRate,
		seed:       func() int64 { return time.Now().UnixNano() },
	}
}

func (h *AudioHandler) RegisterRoutes(r *gin.RouterGroup) {
	audio := r.Group("/audio")
	{
		audio.GET("/tones/:cue", h.Tone)
		audio.GET("/noise/:color", h.Noise)
		audio.GET("/ambient/:kind", h.Ambient)
	}
}

// Tone godoc
// @Summary  Transition tone as a 16-bit mono WAV
// @Tags     audio
// @Produce  audio/wav
// @Param    cue path string true "start, end, bell, gong, inhale, hold_in, exhale or hold_out"
// @Success  200 {file} binary
// @Failure  404 {object} errorResponse
// @Router   /audio/tones/{cue} [get]
func (h *AudioHandler) Tone(c *gin.Context) {
	data, err := h.tones.WAV(c.Request.Context(), synth.Cue(c.Param("cue")))
	if err != nil {
		if errors.Is(err, synth.ErrUnknownCue) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render tone"})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, wavContentType, data)
}

// Noise godoc
// @Summary  Colored noise streamed as WAV
// @Description The body is produced one second at a time from a single generator, so filter state carries across chunks.
// @Tags     audio
// @Produce  audio/wav
// @Param    color   path  string true  "white, pink, brown, blue or green"
// @Param    seconds query int    false "length (default 30, max 600)"
// @Success  200 {file} binary
// @Failure  400,404 {object} errorResponse
// @Router   /audio/noise/{color} [get]
func (h *AudioHandler) Noise(c *gin.Context) {
	color, err := synth.ParseNoiseColor(c.Param("color"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	seconds, ok := queryInt(c, "seconds", defaultAudioSeconds, maxAudioSeconds)
	if !ok {
		return
	}

	gen, err := synth.NewNoiseGenerator(color, h.sampleRate, h.seed())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	frames := seconds * h.sampleRate
	c.Header("Content-Type", wavContentType)
	c.Header("Content-Length", strconv.Itoa(synth.WAVSize(frames)))
	c.Status(http.StatusOK)

	if err := synth.WriteWAVHeader(c.Writer, h.sampleRate, frames); err != nil {
		log.Printf("[AUDIO] Failed to write noise header: %v", err)
		return
	}

	for remaining := frames; remaining > 0; remaining -= h.sampleRate {
		if c.Request.Context().Err() != nil {
			return
		}
		chunk := gen.Fill(min(remaining, h.sampleRate))
		if err := synth.WritePCM16(c.Writer, chunk); err != nil {
			log.Printf("[AUDIO] Noise stream interrupted: %v", err)
			return
		}
		c.Writer.Flush()
	}
}

// Ambient godoc
// @Summary  Synthesized ambient fallback as WAV
// @Tags     audio
// @Produce  audio/wav
// @Param    kind    path  string true  "rain, ocean, wind, forest, fire or stream"
// @Param    seconds query int    false "length (default 30, max 600)"
// @Success  200 {file} binary
// @Failure  400,404 {object} errorResponse
// @Router   /audio/ambient/{kind} [get]
func (h *AudioHandler) Ambient(c *gin.Context) {
	kind, err := synth.ParseAmbient(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	seconds, ok := queryInt(c, "seconds", defaultAudioSeconds, maxAudioSeconds)
	if !ok {
		return
	}

	buf := synth.SynthesizeAmbient(kind, h.sampleRate, float64(seconds), h.seed())

	var out bytes.Buffer
	out.Grow(synth.WAVSize(buf.Len()))
	if err := synth.EncodeWAV(&out, buf); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render ambient sound"})
		return
	}

	c.Data(http.StatusOK, wavContentType, out.Bytes())
}
