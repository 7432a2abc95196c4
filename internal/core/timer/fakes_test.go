package timer

import (
	"context"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// manualTicker never fires; tests call Tick on the engine instead.
type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func manualTickers() TickerFactory {
	return func(time.Duration) Ticker {
		return &manualTicker{ch: make(chan time.Time)}
	}
}

type pendingCall struct {
	delay    time.Duration
	f        func()
	canceled bool
}

type fakeScheduler struct {
	mu    sync.Mutex
	calls []*pendingCall
}

func (s *fakeScheduler) Schedule(d time.Duration, f func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &pendingCall{delay: d, f: f}
	s.calls = append(s.calls, c)
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		c.canceled = true
	}
}

// FireAll runs every pending, non-canceled call outside the scheduler lock.
func (s *fakeScheduler) FireAll() int {
	s.mu.Lock()
	calls := s.calls
	s.calls = nil
	s.mu.Unlock()

	fired := 0
	for _, c := range calls {
		if !c.canceled {
			c.f()
			fired++
		}
	}
	return fired
}

func (s *fakeScheduler) Last() *pendingCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return nil
	}
	return s.calls[len(s.calls)-1]
}

type fakeRecorder struct {
	mu     sync.Mutex
	inputs []domain.ActivityInput
}

func (r *fakeRecorder) RecordActivity(_ context.Context, in domain.ActivityInput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, in)
	return nil
}

func (r *fakeRecorder) Inputs() []domain.ActivityInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ActivityInput(nil), r.inputs...)
}

type fakeCues struct {
	mu     sync.Mutex
	played []synth.Cue
}

func (c *fakeCues) PlayCue(cue synth.Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.played = append(c.played, cue)
}

func (c *fakeCues) Played() []synth.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]synth.Cue(nil), c.played...)
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) listen(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) OfType(typ EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	clock    *fakeClock
	sched    *fakeScheduler
	recorder *fakeRecorder
	cues     *fakeCues
	events   *eventLog
}

func newHarness() *harness {
	return &harness{
		clock:    newFakeClock(),
		sched:    &fakeScheduler{},
		recorder: &fakeRecorder{},
		cues:     &fakeCues{},
		events:   &eventLog{},
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Clock:     h.clock,
		NewTicker: manualTickers(),
		Schedule:  h.sched.Schedule,
		Recorder:  h.recorder,
		Cues:      h.cues,
	}
}
