package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

func newTestBreathing(h *harness) *BreathingTimer {
	b := NewBreathingTimer("user-1", nil, 0, h.deps())
	b.Subscribe(h.events.listen)
	return b
}

func TestPattern_At(t *testing.T) {
	p := DefaultPattern()
	assert.Equal(t, 12*time.Second, p.CycleDuration())

	tests := []struct {
		elapsed time.Duration
		want    Phase
	}{
		{0, PhaseInhale},
		{3900 * time.Millisecond, PhaseInhale},
		{4 * time.Second, PhaseHoldIn},
		{6 * time.Second, PhaseExhale},
		{10 * time.Second, PhaseHoldOut},
		{12 * time.Second, PhaseInhale},
		{25 * time.Second, PhaseInhale},
		{35 * time.Second, PhaseHoldOut},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.At(tt.elapsed).Phase, "elapsed %s", tt.elapsed)
	}

	assert.Equal(t, PhaseSpec{}, Pattern{}.At(time.Second))
}

func TestBreathingTimer_PhaseBoundaries(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	require.Len(t, h.events.OfType(EventPhaseChange), 1)
	assert.Equal(t, PhaseInhale, b.Snapshot().Phase)

	changesAt := map[int]Phase{}
	for tick := 1; tick <= 120; tick++ {
		before := len(h.events.OfType(EventPhaseChange))
		b.Tick()
		after := h.events.OfType(EventPhaseChange)
		if len(after) > before {
			require.Equal(t, before+1, len(after), "at most one transition per tick")
			changesAt[tick] = after[len(after)-1].Phase
		}
	}

	assert.Equal(t, map[int]Phase{
		40:  PhaseHoldIn,
		60:  PhaseExhale,
		100: PhaseHoldOut,
		120: PhaseInhale,
	}, changesAt)

	state := b.Snapshot()
	assert.Equal(t, 1, state.Cycles)
	assert.Equal(t, PhaseInhale, state.Phase)

	assert.Equal(t, []synth.Cue{
		synth.CueStart, synth.CueHoldIn, synth.CueExhale, synth.CueHoldOut, synth.CueInhale,
	}, h.cues.Played())
}

func TestBreathingTimer_PhaseEventCarriesAnimationTarget(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	for i := 0; i < 60; i++ {
		b.Tick()
	}

	changes := h.events.OfType(EventPhaseChange)
	require.Len(t, changes, 3)

	exhale := changes[2]
	assert.Equal(t, PhaseExhale, exhale.Phase)
	assert.Equal(t, 0.5, exhale.TargetScale)
	assert.Equal(t, 4.0, exhale.TransitionSeconds)
	assert.Equal(t, KindBreathing, exhale.Kind)
}

func TestBreathingTimer_PausedTicksAreIgnored(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	for i := 0; i < 39; i++ {
		b.Tick()
	}
	b.Pause()
	for i := 0; i < 50; i++ {
		b.Tick()
	}
	assert.Equal(t, PhaseInhale, b.Snapshot().Phase)
	assert.True(t, b.Snapshot().Paused)

	b.Resume()
	b.Tick()
	assert.Equal(t, PhaseHoldIn, b.Snapshot().Phase)
	assert.Len(t, h.events.OfType(EventResumed), 1)
}

func TestBreathingTimer_StopFlushesOnce(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	h.clock.Advance(90 * time.Second)
	b.Stop()
	b.Stop()

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, domain.ActivityBreathe, inputs[0].Activity)
	assert.Equal(t, 90*time.Second, inputs[0].Duration)
	assert.Equal(t, "user-1", inputs[0].UserID)

	assert.Len(t, h.events.OfType(EventStopped), 1)
	assert.False(t, b.Running())
}

func TestBreathingTimer_StopExcludesPausedTime(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	h.clock.Advance(40 * time.Second)
	b.Pause()
	h.clock.Advance(5 * time.Minute)
	b.Resume()
	h.clock.Advance(20 * time.Second)
	b.Stop()

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, time.Minute, inputs[0].Duration)
}

func TestBreathingTimer_RestartBeginsAtInhale(t *testing.T) {
	h := newHarness()
	b := newTestBreathing(h)

	b.Start()
	for i := 0; i < 70; i++ {
		b.Tick()
	}
	assert.Equal(t, PhaseExhale, b.Snapshot().Phase)

	b.Stop()
	b.Start()
	state := b.Snapshot()
	assert.Equal(t, PhaseInhale, state.Phase)
	assert.Equal(t, 0, state.Cycles)
	assert.Len(t, h.events.OfType(EventStarted), 2)
}
