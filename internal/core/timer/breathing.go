package timer

import (
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

type Phase string

const (
	PhaseInhale  Phase = "inhale"
	PhaseHoldIn  Phase = "hold_in"
	PhaseExhale  Phase = "exhale"
	PhaseHoldOut Phase = "hold_out"
)

const DefaultBreathingTick = 100 * time.Millisecond

// PhaseSpec carries the animation target for the phase: the circle scales to
// TargetScale over the phase duration.
type PhaseSpec struct {
	Phase       Phase
	Duration    time.Duration
	TargetScale float64
	Cue         synth.Cue
}

type Pattern []PhaseSpec

// DefaultPattern is the 12 second 4-2-4-2 cycle.
func DefaultPattern() Pattern {
	return Pattern{
		{Phase: PhaseInhale, Duration: 4 * time.Second, TargetScale: 1.0, Cue: synth.CueInhale},
		{Phase: PhaseHoldIn, Duration: 2 * time.Second, TargetScale: 1.0, Cue: synth.CueHoldIn},
		{Phase: PhaseExhale, Duration: 4 * time.Second, TargetScale: 0.5, Cue: synth.CueExhale},
		{Phase: PhaseHoldOut, Duration: 2 * time.Second, TargetScale: 0.5, Cue: synth.CueHoldOut},
	}
}

func (p Pattern) CycleDuration() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Duration
	}
	return d
}

// At maps a total elapsed time onto the phase active at that instant. Phase
// lower bounds are inclusive.
func (p Pattern) At(elapsed time.Duration) PhaseSpec {
	cycle := p.CycleDuration()
	if len(p) == 0 || cycle <= 0 {
		return PhaseSpec{}
	}
	inCycle := elapsed % cycle
	var end time.Duration
	for _, s := range p {
		end += s.Duration
		if inCycle < end {
			return s
		}
	}
	return p[len(p)-1]
}

type BreathingState struct {
	Kind           Kind    `json:"kind"`
	Phase          Phase   `json:"phase"`
	Cycles         int     `json:"cycles"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Running        bool    `json:"running"`
	Paused         bool    `json:"paused"`
}

type BreathingTimer struct {
	mu sync.Mutex

	userID    string
	pattern   Pattern
	deps      Deps
	loop      tickLoop
	listeners []Listener

	running bool
	paused  bool
	ticks   int64
	phase   PhaseSpec
	cycles  int
	elapsed measure
}

func NewBreathingTimer(userID string, pattern Pattern, tick time.Duration, deps Deps) *BreathingTimer {
	if len(pattern) == 0 || pattern.CycleDuration() <= 0 {
		pattern = DefaultPattern()
	}
	if tick <= 0 {
		tick = DefaultBreathingTick
	}
	deps = deps.withDefaults()

	return &BreathingTimer{
		userID:  userID,
		pattern: pattern,
		deps:    deps,
		loop:    tickLoop{newTicker: deps.NewTicker, interval: tick},
		phase:   pattern[0],
	}
}

func (b *BreathingTimer) Kind() Kind { return KindBreathing }

func (b *BreathingTimer) Subscribe(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *BreathingTimer) do(fn func(fx *effects)) {
	b.mu.Lock()
	var fx effects
	fn(&fx)
	listeners := b.listeners
	b.mu.Unlock()

	b.deps.apply(fx, listeners)
}

func (b *BreathingTimer) cycleTime() time.Duration {
	return time.Duration(b.ticks) * b.loop.interval
}

func (b *BreathingTimer) event(typ EventType) Event {
	now := b.deps.Clock.Now()
	return Event{
		Type:              typ,
		Kind:              KindBreathing,
		At:                now,
		ElapsedSeconds:    b.elapsed.total(now).Seconds(),
		Phase:             b.phase.Phase,
		TargetScale:       b.phase.TargetScale,
		TransitionSeconds: b.phase.Duration.Seconds(),
		Cycles:            b.cycles,
	}
}

func (b *BreathingTimer) Start() {
	b.do(func(fx *effects) {
		if b.running {
			if b.paused {
				b.resumeLocked(fx)
			}
			return
		}

		b.running = true
		b.paused = false
		b.ticks = 0
		b.cycles = 0
		b.phase = b.pattern.At(0)
		b.elapsed.begin(b.deps.Clock.Now())
		b.loop.start(b.handleTick)

		fx.cue(synth.CueStart)
		fx.emit(b.event(EventStarted))
		fx.emit(b.event(EventPhaseChange))
	})
}

func (b *BreathingTimer) Pause() {
	b.do(func(fx *effects) {
		if !b.running || b.paused {
			return
		}
		b.paused = true
		b.elapsed.suspend(b.deps.Clock.Now())
		b.loop.halt()
		fx.emit(b.event(EventPaused))
	})
}

func (b *BreathingTimer) Resume() {
	b.do(func(fx *effects) {
		if !b.running || !b.paused {
			return
		}
		b.resumeLocked(fx)
	})
}

func (b *BreathingTimer) resumeLocked(fx *effects) {
	b.paused = false
	b.elapsed.begin(b.deps.Clock.Now())
	b.loop.start(b.handleTick)
	fx.emit(b.event(EventResumed))
}

// Stop ends the session and flushes the breathing time once.
func (b *BreathingTimer) Stop() {
	b.do(func(fx *effects) {
		b.loop.halt()
		if d := b.elapsed.drain(b.deps.Clock.Now()); d > 0 {
			fx.flush = &domain.ActivityInput{
				UserID:   b.userID,
				Activity: domain.ActivityBreathe,
				Duration: d,
			}
		}
		wasRunning := b.running
		b.running = false
		b.paused = false
		if wasRunning {
			fx.emit(b.event(EventStopped))
		}
		b.ticks = 0
		b.phase = b.pattern[0]
	})
}

func (b *BreathingTimer) Tick() {
	b.do(func(fx *effects) {
		b.tickLocked(fx)
	})
}

func (b *BreathingTimer) handleTick(id uint64) {
	b.do(func(fx *effects) {
		if !b.loop.current(id) {
			return
		}
		b.tickLocked(fx)
	})
}

func (b *BreathingTimer) tickLocked(fx *effects) {
	if !b.running || b.paused {
		return
	}
	b.ticks++

	next := b.pattern.At(b.cycleTime())
	if next.Phase == b.phase.Phase {
		return
	}
	if next.Phase == b.pattern[0].Phase {
		b.cycles++
	}
	b.phase = next
	fx.cue(next.Cue)
	fx.emit(b.event(EventPhaseChange))
}

func (b *BreathingTimer) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *BreathingTimer) Snapshot() BreathingState {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreathingState{
		Kind:           KindBreathing,
		Phase:          b.phase.Phase,
		Cycles:         b.cycles,
		ElapsedSeconds: b.elapsed.total(b.deps.Clock.Now()).Seconds(),
		Running:        b.running,
		Paused:         b.paused,
	}
}
