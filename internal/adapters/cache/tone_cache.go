package cache

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

// ToneCache serves rendered cue WAVs from Redis and renders on a miss. A nil
// client disables caching.
type ToneCache struct {
	rdb        *redis.Client
	sampleRate int
	ttl        time.Duration
}

func NewToneCache(rdb *redis.Client, sampleRate int) *ToneCache {
	if sampleRate <= 0 {
		sampleRate = synth.DefaultSampleRate
	}
	return &ToneCache{
		rdb:        rdb,
		sampleRate: sampleRate,
		ttl:        24 * time.Hour,
	}
}

func (c *ToneCache) key(cue synth.Cue) string {
	return fmt.Sprintf("audio:tone:%s:%d", cue, c.sampleRate)
}

// WAV returns the encoded cue. Unknown cues fail with synth.ErrUnknownCue.
func (c *ToneCache) WAV(ctx context.Context, cue synth.Cue) ([]byte, error) {
	if _, err := synth.Preset(cue); err != nil {
		return nil, err
	}

	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, c.key(cue)).Bytes()
		if err == nil && len(data) > 0 {
			return data, nil
		}
		if err != nil && err != redis.Nil {
			log.Printf("[CACHE] Redis read error for tone %s: %v", cue, err)
		}
	}

	var buf bytes.Buffer
	if err := synth.EncodeWAV(&buf, synth.RenderCue(cue, c.sampleRate)); err != nil {
		return nil, err
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, c.key(cue), buf.Bytes(), c.ttl).Err(); err != nil {
			log.Printf("[CACHE] Redis set error for tone %s: %v", cue, err)
		}
	}
	return buf.Bytes(), nil
}

// Warm renders every cue into the cache.
func (c *ToneCache) Warm(ctx context.Context) {
	for _, cue := range synth.Cues() {
		if _, err := c.WAV(ctx, cue); err != nil {
			log.Printf("[CACHE] Failed to warm tone %s: %v", cue, err)
		}
	}
}
