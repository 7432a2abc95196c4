package cache

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

func TestToneCache_WithoutRedis(t *testing.T) {
	c := NewToneCache(nil, 8000)
	ctx := context.Background()

	data, err := c.WAV(ctx, synth.CueBell)
	require.NoError(t, err)
	require.Greater(t, len(data), 44)

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, uint32(8000), binary.LittleEndian.Uint32(data[24:28]))

	_, err = c.WAV(ctx, "kazoo")
	assert.ErrorIs(t, err, synth.ErrUnknownCue)
}

func TestToneCache_Integration(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()
	c := NewToneCache(rdb, 8000)

	rdb.Del(ctx, c.key(synth.CueGong))

	first, err := c.WAV(ctx, synth.CueGong)
	require.NoError(t, err)

	cached, err := rdb.Get(ctx, c.key(synth.CueGong)).Bytes()
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	second, err := c.WAV(ctx, synth.CueGong)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
