package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

func shortDurations() Durations {
	return Durations{Work: 3 * time.Second, ShortBreak: 2 * time.Second, LongBreak: 4 * time.Second}
}

func newTestFocus(h *harness, auto bool) *FocusTimer {
	ft := NewFocusTimer("user-1", FocusSettings{
		Durations:      shortDurations(),
		AutoCycle:      auto,
		AutoStartDelay: time.Second,
	}, h.deps())
	ft.Subscribe(h.events.listen)
	return ft
}

// runOut ticks the timer until it completes, advancing the clock per tick.
func runOut(h *harness, ft *FocusTimer) {
	for i := 0; i < 100 && ft.Running(); i++ {
		h.clock.Advance(time.Second)
		ft.Tick()
	}
}

func TestModeForPosition(t *testing.T) {
	want := map[int]Mode{
		1: ModeWork, 2: ModeShortBreak, 3: ModeWork, 4: ModeShortBreak,
		5: ModeWork, 6: ModeShortBreak, 7: ModeWork, 8: ModeLongBreak,
	}
	for pos, mode := range want {
		assert.Equal(t, mode, ModeForPosition(pos), "position %d", pos)
	}

	assert.Equal(t, 2, NextPosition(1))
	assert.Equal(t, 1, NextPosition(8))
	assert.Equal(t, 1, NextPosition(0))
}

func TestSuggestNext(t *testing.T) {
	tests := []struct {
		name          string
		completed     Mode
		completedWork int
		want          Mode
	}{
		{"First work session", ModeWork, 1, ModeShortBreak},
		{"Third work session", ModeWork, 3, ModeShortBreak},
		{"Fourth work session", ModeWork, 4, ModeLongBreak},
		{"Eighth work session", ModeWork, 8, ModeLongBreak},
		{"Short break", ModeShortBreak, 2, ModeWork},
		{"Long break", ModeLongBreak, 4, ModeWork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestNext(tt.completed, tt.completedWork))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" SHORT_BREAK ")
	assert.NoError(t, err)
	assert.Equal(t, ModeShortBreak, m)

	_, err = ParseMode("nap")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestFocusTimer_StartIsIdempotent(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, false)

	ft.Start()
	ft.Start()

	assert.Len(t, h.events.OfType(EventStarted), 1)
	assert.Equal(t, []synth.Cue{synth.CueStart}, h.cues.Played())
	assert.True(t, ft.Running())
}

func TestFocusTimer_ManualCompletionSuggestsNextMode(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, false)

	ft.Start()
	runOut(h, ft)

	state := ft.Snapshot()
	assert.False(t, state.Running)
	assert.Equal(t, ModeShortBreak, state.Mode, "break is suggested, not started")
	assert.Equal(t, 2, state.RemainingSeconds)
	assert.Equal(t, 1, state.CompletedWork)

	completed := h.events.OfType(EventCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, ModeWork, completed[0].Mode)
	assert.Equal(t, ModeShortBreak, completed[0].NextMode)
	assert.False(t, completed[0].AutoStart)

	assert.Equal(t, []synth.Cue{synth.CueStart, synth.CueEnd}, h.cues.Played())

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, domain.ActivityFocus, inputs[0].Activity)
	assert.Equal(t, 3*time.Second, inputs[0].Duration)
	assert.Equal(t, "user-1", inputs[0].UserID)

	assert.Nil(t, h.sched.Last(), "manual mode never auto-starts")
}

func TestFocusTimer_FourthWorkSessionEarnsLongBreak(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, false)

	var suggestions []Mode
	for i := 0; i < 8; i++ {
		ft.Start()
		runOut(h, ft)
		suggestions = append(suggestions, ft.Snapshot().Mode)
	}

	assert.Equal(t, []Mode{
		ModeShortBreak, ModeWork, ModeShortBreak, ModeWork,
		ModeShortBreak, ModeWork, ModeLongBreak, ModeWork,
	}, suggestions)

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 8)
	assert.Equal(t, domain.ActivityRest, inputs[1].Activity)
	assert.Equal(t, domain.BreakShort, inputs[1].Break)
	assert.Equal(t, domain.BreakLong, inputs[7].Break)
}

func TestFocusTimer_AutoCycle(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, true)

	ft.Start()
	var positions []int
	for i := 0; i < 8; i++ {
		runOut(h, ft)
		positions = append(positions, ft.Snapshot().CyclePosition)

		call := h.sched.Last()
		require.NotNil(t, call)
		assert.Equal(t, time.Second, call.delay)

		assert.False(t, ft.Running(), "next phase waits for the delay")
		assert.Equal(t, 1, h.sched.FireAll())
		assert.True(t, ft.Running(), "next phase starts after the delay")
	}

	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 1}, positions)

	completed := h.events.OfType(EventCompleted)
	require.Len(t, completed, 8)
	last := completed[7]
	assert.Equal(t, ModeLongBreak, last.Mode)
	assert.Equal(t, ModeWork, last.NextMode)
	assert.Equal(t, 1, last.CyclePosition)
	assert.True(t, last.AutoStart)
}

func TestFocusTimer_AutoStartRespectsGate(t *testing.T) {
	h := newHarness()
	open := true
	var asked []Kind

	deps := h.deps()
	deps.Gate = func(kind Kind, start func()) bool {
		asked = append(asked, kind)
		if !open {
			return false
		}
		start()
		return true
	}
	ft := NewFocusTimer("user-1", FocusSettings{
		Durations:      shortDurations(),
		AutoCycle:      true,
		AutoStartDelay: time.Second,
	}, deps)

	ft.Start()
	runOut(h, ft)
	open = false
	assert.Equal(t, 1, h.sched.FireAll())
	assert.False(t, ft.Running())
	assert.Equal(t, []Kind{KindFocus}, asked)

	state := ft.Snapshot()
	assert.Equal(t, ModeShortBreak, state.Mode)
	assert.Equal(t, 2, state.CyclePosition)

	open = true
	ft.Start()
	assert.True(t, ft.Running(), "a manual start still works after a dropped auto-start")
	runOut(h, ft)
	assert.Equal(t, 1, h.sched.FireAll())
	assert.True(t, ft.Running())
	assert.Equal(t, []Kind{KindFocus, KindFocus}, asked)
}

func TestFocusTimer_ResetCancelsPendingAutoStart(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, true)

	ft.Start()
	runOut(h, ft)
	assert.Equal(t, ModeShortBreak, ft.Snapshot().Mode)

	ft.Reset()
	assert.Equal(t, 0, h.sched.FireAll())
	assert.False(t, ft.Running())

	state := ft.Snapshot()
	assert.Equal(t, 1, state.CyclePosition)
	assert.Equal(t, ModeWork, state.Mode)
	assert.Equal(t, 3, state.RemainingSeconds)
}

func TestFocusTimer_PauseResumePreservesRemaining(t *testing.T) {
	h := newHarness()
	ft := NewFocusTimer("user-1", FocusSettings{}, h.deps())

	ft.Start()
	for i := 0; i < 2; i++ {
		h.clock.Advance(time.Second)
		ft.Tick()
	}

	ft.Pause()
	ft.Tick()
	h.clock.Advance(10 * time.Minute)
	ft.Resume()

	state := ft.Snapshot()
	assert.True(t, state.Running)
	assert.False(t, state.Paused)
	assert.Equal(t, 25*60-2, state.RemainingSeconds)
	assert.Equal(t, 2.0, state.ElapsedSeconds, "paused time is not measured")
}

func TestFocusTimer_ResetFlushesExactlyOnce(t *testing.T) {
	h := newHarness()
	ft := NewFocusTimer("user-1", FocusSettings{}, h.deps())

	ft.Start()
	h.clock.Advance(45 * time.Second)
	ft.Reset()
	ft.Reset()

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, 45*time.Second, inputs[0].Duration)
	assert.Equal(t, domain.ActivityFocus, inputs[0].Activity)

	state := ft.Snapshot()
	assert.Equal(t, ModeWork, state.Mode)
	assert.Equal(t, 25*60, state.RemainingSeconds)
	assert.Equal(t, 0.0, state.ElapsedSeconds)
}

func TestFocusTimer_ResetWhilePausedRecordsActiveTimeOnly(t *testing.T) {
	h := newHarness()
	ft := NewFocusTimer("user-1", FocusSettings{}, h.deps())

	require.NoError(t, ft.SelectMode(ModeLongBreak))
	ft.Start()
	h.clock.Advance(20 * time.Second)
	ft.Pause()
	h.clock.Advance(time.Hour)
	ft.Reset()

	inputs := h.recorder.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, 20*time.Second, inputs[0].Duration)
	assert.Equal(t, domain.ActivityRest, inputs[0].Activity)
	assert.Equal(t, domain.BreakLong, inputs[0].Break)

	assert.Equal(t, ModeLongBreak, ft.Snapshot().Mode, "manual reset keeps the selected mode")
}

func TestFocusTimer_ResetWithoutElapsedRecordsNothing(t *testing.T) {
	h := newHarness()
	ft := NewFocusTimer("user-1", FocusSettings{}, h.deps())

	ft.Reset()
	assert.Empty(t, h.recorder.Inputs())
}

func TestFocusTimer_SelectModeWhileRunning(t *testing.T) {
	h := newHarness()
	ft := NewFocusTimer("user-1", FocusSettings{}, h.deps())

	ft.Start()
	assert.ErrorIs(t, ft.SelectMode(ModeShortBreak), ErrTimerRunning)
	assert.ErrorIs(t, ft.SetAutoCycle(true), ErrTimerRunning)

	ft.Reset()
	assert.NoError(t, ft.SelectMode(ModeShortBreak))
	assert.Equal(t, 5*60, ft.Snapshot().RemainingSeconds)
	assert.ErrorIs(t, ft.SelectMode("nap"), ErrInvalidMode)
}

func TestFocusTimer_CompleteSessionEarly(t *testing.T) {
	h := newHarness()
	ft := newTestFocus(h, false)

	ft.CompleteSession()
	assert.Empty(t, h.events.OfType(EventCompleted), "nothing to complete when idle")

	ft.Start()
	h.clock.Advance(time.Second)
	ft.CompleteSession()

	assert.Len(t, h.events.OfType(EventCompleted), 1)
	assert.Equal(t, ModeShortBreak, ft.Snapshot().Mode)
}

func TestFocusTimer_RealTicker(t *testing.T) {
	done := make(chan Event, 1)
	ft := NewFocusTimer("user-1", FocusSettings{
		Durations:    Durations{Work: 30 * time.Millisecond, ShortBreak: time.Second, LongBreak: time.Second},
		TickInterval: 10 * time.Millisecond,
	}, Deps{})
	ft.Subscribe(func(e Event) {
		if e.Type == EventCompleted {
			done <- e
		}
	})

	ft.Start()

	select {
	case e := <-done:
		assert.Equal(t, ModeWork, e.Mode)
		assert.False(t, ft.Running())
	case <-time.After(2 * time.Second):
		t.Fatal("timer never completed")
	}
}
