package http_test

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

const testSampleRate = 8000

func setupAudioRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := adapterHTTP.NewAudioHandler(cache.NewToneCache(nil, testSampleRate), testSampleRate)
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestAudioHandler_Tone(t *testing.T) {
	r := setupAudioRouter()

	for _, cue := range synth.Cues() {
		t.Run(string(cue), func(t *testing.T) {
			w := doJSON(r, http.MethodGet, "/api/v1/audio/tones/"+string(cue), "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
			assert.Equal(t, "RIFF", w.Body.String()[:4])
		})
	}

	t.Run("Unknown cue", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/audio/tones/kazoo", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAudioHandler_Noise(t *testing.T) {
	r := setupAudioRouter()

	t.Run("Streams the declared length", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/audio/noise/pink?seconds=3", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		want := synth.WAVSize(3 * testSampleRate)
		assert.Equal(t, strconv.Itoa(want), w.Header().Get("Content-Length"))
		require.Equal(t, want, w.Body.Len())

		body := w.Body.Bytes()
		assert.Equal(t, "WAVE", string(body[8:12]))
		assert.Equal(t, uint32(testSampleRate), binary.LittleEndian.Uint32(body[24:28]))
		assert.Equal(t, uint32(3*testSampleRate*2), binary.LittleEndian.Uint32(body[40:44]))
	})

	t.Run("Unknown color", func(t *testing.T) {
		w := doJSON(r, http.MethodGet, "/api/v1/audio/noise/purple", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Length out of range", func(t *testing.T) {
		for _, q := range []string{"0", "601", "x"} {
			w := doJSON(r, http.MethodGet, "/api/v1/audio/noise/white?seconds="+q, "", nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, "seconds="+q)
		}
	})
}

func TestAudioHandler_Ambient(t *testing.T) {
	r := setupAudioRouter()

	w := doJSON(r, http.MethodGet, "/api/v1/audio/ambient/rain?seconds=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, synth.WAVSize(testSampleRate), w.Body.Len())

	w = doJSON(r, http.MethodGet, "/api/v1/audio/ambient/thunder", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
