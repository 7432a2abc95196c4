package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/services"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type silentTicker struct{ ch chan time.Time }

func (s silentTicker) C() <-chan time.Time { return s.ch }
func (s silentTicker) Stop()               {}

func newTimerFixture() (*services.TimerService, *stepClock, *repository.InMemoryCounterStore) {
	clock := &stepClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	counters := repository.NewInMemoryCounterStore()
	stats := services.NewStatsService(repository.NewInMemorySessionRepository(), counters, nil, nil, time.UTC)

	deps := timer.Deps{
		Clock:     clock,
		NewTicker: func(time.Duration) timer.Ticker { return silentTicker{ch: make(chan time.Time)} },
		Schedule:  func(time.Duration, func()) func() { return func() {} },
	}
	svc := services.NewTimerService(stats, timer.FocusSettings{}, nil, deps)
	return svc, clock, counters
}

func drain(ch <-chan services.StreamMessage) []services.StreamMessage {
	var out []services.StreamMessage
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func TestTimerService_EnginesAreExclusive(t *testing.T) {
	svc, _, _ := newTimerFixture()

	_, err := svc.StartFocus("u1")
	require.NoError(t, err)

	_, err = svc.StartBreathing("u1")
	assert.ErrorIs(t, err, services.ErrTimerBusy)

	_, err = svc.StartBreathing("u2")
	assert.NoError(t, err, "other users are independent")

	svc.ResetFocus("u1")
	state, err := svc.StartBreathing("u1")
	assert.NoError(t, err)
	assert.True(t, state.Running)

	_, err = svc.StartFocus("u1")
	assert.ErrorIs(t, err, services.ErrTimerBusy)
}

type pendingStarts struct {
	mu    sync.Mutex
	calls []func()
}

func (p *pendingStarts) schedule(_ time.Duration, f func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, f)
	return func() {}
}

func (p *pendingStarts) fire() int {
	p.mu.Lock()
	calls := p.calls
	p.calls = nil
	p.mu.Unlock()

	for _, f := range calls {
		f()
	}
	return len(calls)
}

func TestTimerService_AutoStartYieldsToBreathing(t *testing.T) {
	clock := &stepClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	ticks := make(chan time.Time)
	pending := &pendingStarts{}
	stats := services.NewStatsService(repository.NewInMemorySessionRepository(), repository.NewInMemoryCounterStore(), nil, nil, time.UTC)

	deps := timer.Deps{
		Clock:     clock,
		NewTicker: func(time.Duration) timer.Ticker { return silentTicker{ch: ticks} },
		Schedule:  pending.schedule,
	}
	settings := timer.FocusSettings{
		Durations:      timer.Durations{Work: time.Second, ShortBreak: time.Second, LongBreak: time.Second},
		AutoCycle:      true,
		TickInterval:   time.Second,
		AutoStartDelay: time.Second,
	}
	svc := services.NewTimerService(stats, settings, nil, deps)

	_, err := svc.StartFocus("u1")
	require.NoError(t, err)

	clock.Advance(time.Second)
	ticks <- clock.Now()
	require.Eventually(t, func() bool {
		return !svc.Snapshot("u1").Focus.Running
	}, time.Second, 5*time.Millisecond)

	_, err = svc.StartBreathing("u1")
	require.NoError(t, err, "the gap before the next phase is idle")

	assert.Equal(t, 1, pending.fire())

	snap := svc.Snapshot("u1")
	assert.True(t, snap.Breathing.Running)
	assert.False(t, snap.Focus.Running, "auto-start is dropped while breathing runs")
	assert.Equal(t, timer.ModeShortBreak, snap.Focus.Mode)

	svc.StopBreathing("u1")
	state, err := svc.StartFocus("u1")
	require.NoError(t, err)
	assert.True(t, state.Running)
	assert.Equal(t, timer.ModeShortBreak, state.Mode)
}

func TestTimerService_ConcurrentStartsStayExclusive(t *testing.T) {
	svc, _, _ := newTimerFixture()

	for i := 0; i < 50; i++ {
		userID := fmt.Sprintf("user-%d", i)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.StartFocus(userID)
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.StartBreathing(userID)
		}()
		wg.Wait()

		snap := svc.Snapshot(userID)
		assert.False(t, snap.Focus.Running && snap.Breathing.Running, "both engines running for %s", userID)

		busy := 0
		for _, err := range errs {
			if errors.Is(err, services.ErrTimerBusy) {
				busy++
			} else {
				assert.NoError(t, err)
			}
		}
		assert.Equal(t, 1, busy, "exactly one start is refused for %s", userID)
	}
}

func TestTimerService_StreamCarriesEventsAndCues(t *testing.T) {
	svc, _, _ := newTimerFixture()

	ch, cancel := svc.Subscribe("u1")
	defer cancel()

	_, err := svc.StartBreathing("u1")
	require.NoError(t, err)

	msgs := drain(ch)
	require.Len(t, msgs, 3)

	assert.Equal(t, services.StreamEventCue, msgs[0].Event)
	assert.Equal(t, synth.CueStart, msgs[0].Payload.(services.CueMessage).Cue)
	assert.Equal(t, "/api/v1/audio/tones/start", msgs[0].Payload.(services.CueMessage).URL)

	assert.Equal(t, services.StreamEventTimer, msgs[1].Event)
	assert.Equal(t, timer.EventStarted, msgs[1].Payload.(timer.Event).Type)
	assert.Equal(t, timer.PhaseInhale, msgs[2].Payload.(timer.Event).Phase)
}

func TestTimerService_CancelledSubscriberIsClosed(t *testing.T) {
	svc, _, _ := newTimerFixture()

	ch, cancel := svc.Subscribe("u1")
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	_, err := svc.StartFocus("u1")
	assert.NoError(t, err)
}

func TestTimerService_StoppingRecordsStats(t *testing.T) {
	svc, clock, counters := newTimerFixture()
	ctx := context.Background()

	_, err := svc.StartBreathing("u1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	state := svc.StopBreathing("u1")
	assert.False(t, state.Running)

	breathe, _ := counters.GetBreatheStats(ctx, "u1")
	assert.Equal(t, domain.BreatheStats{SessionsCompleted: 1, TotalSeconds: 120, LongestSessionSeconds: 120}, breathe)

	_, err = svc.StartFocus("u1")
	require.NoError(t, err)
	clock.Advance(10 * time.Second)
	svc.Shutdown()

	focus, _ := counters.GetFocusStats(ctx, "u1")
	assert.Equal(t, 10, focus.TotalFocusTimeSeconds)
	assert.Equal(t, 0, focus.FocusSessionsCompleted)
}

func TestTimerService_ModeSelection(t *testing.T) {
	svc, _, _ := newTimerFixture()

	state, err := svc.SelectFocusMode("u1", timer.ModeLongBreak)
	require.NoError(t, err)
	assert.Equal(t, 15*60, state.RemainingSeconds)

	state, err = svc.SetAutoCycle("u1", true)
	require.NoError(t, err)
	assert.True(t, state.AutoCycle)
	assert.Equal(t, timer.ModeWork, state.Mode)

	_, err = svc.StartFocus("u1")
	require.NoError(t, err)
	_, err = svc.SelectFocusMode("u1", timer.ModeShortBreak)
	assert.ErrorIs(t, err, timer.ErrTimerRunning)

	snap := svc.Snapshot("u1")
	assert.True(t, snap.Focus.Running)
	assert.False(t, snap.Breathing.Running)

	paused := svc.PauseFocus("u1")
	assert.True(t, paused.Paused)
	resumed := svc.ResumeFocus("u1")
	assert.False(t, resumed.Paused)
}
