// Package timer drives the breathing phase cycle and the Pomodoro focus
// cycle. Engines emit events to registered listeners, ask a CuePlayer for
// transition tones and flush measured time to a Recorder.
package timer

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

var (
	ErrTimerRunning = errors.New("timer is running")
	ErrInvalidMode  = errors.New("invalid focus mode (must be work, short_break, or long_break)")
)

type Kind string

const (
	KindBreathing Kind = "breathing"
	KindFocus     Kind = "focus"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type stdTicker struct{ t *time.Ticker }

func (s stdTicker) C() <-chan time.Time { return s.t.C }
func (s stdTicker) Stop()               { s.t.Stop() }

func NewStdTicker(d time.Duration) Ticker {
	return stdTicker{t: time.NewTicker(d)}
}

// Scheduler runs f once after d and returns a cancel func.
type Scheduler func(d time.Duration, f func()) (cancel func())

func AfterFunc(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

type Recorder interface {
	RecordActivity(ctx context.Context, in domain.ActivityInput) error
}

type CuePlayer interface {
	PlayCue(cue synth.Cue)
}

type EventType string

const (
	EventStarted     EventType = "started"
	EventPaused      EventType = "paused"
	EventResumed     EventType = "resumed"
	EventTick        EventType = "tick"
	EventPhaseChange EventType = "phase_change"
	EventCompleted   EventType = "completed"
	EventReset       EventType = "reset"
	EventStopped     EventType = "stopped"
)

// Event is delivered to listeners after the engine lock is released.
type Event struct {
	Type             EventType `json:"type"`
	Kind             Kind      `json:"kind"`
	At               time.Time `json:"at"`
	RemainingSeconds int       `json:"remaining_seconds,omitempty"`
	ElapsedSeconds   float64   `json:"elapsed_seconds"`

	// breathing
	Phase             Phase   `json:"phase,omitempty"`
	TargetScale       float64 `json:"target_scale,omitempty"`
	TransitionSeconds float64 `json:"transition_seconds,omitempty"`
	Cycles            int     `json:"cycles,omitempty"`

	// focus
	Mode          Mode `json:"mode,omitempty"`
	NextMode      Mode `json:"next_mode,omitempty"`
	CyclePosition int  `json:"cycle_position,omitempty"`
	AutoStart     bool `json:"auto_start,omitempty"`
}

type Listener func(Event)

// effects collects everything a locked state transition wants to do once the
// lock is released.
type effects struct {
	events []Event
	cues   []synth.Cue
	flush  *domain.ActivityInput
}

func (fx *effects) emit(e Event) {
	fx.events = append(fx.events, e)
}

func (fx *effects) cue(c synth.Cue) {
	fx.cues = append(fx.cues, c)
}

// Gate decides whether an engine of the given kind may start. When it
// admits, it calls start before returning true.
type Gate func(kind Kind, start func()) bool

// Deps are the engine's collaborators. Nil fields get production defaults,
// except Recorder and Cues which are simply skipped. A nil Gate admits
// every start.
type Deps struct {
	Clock     Clock
	NewTicker TickerFactory
	Schedule  Scheduler
	Recorder  Recorder
	Cues      CuePlayer
	Gate      Gate
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = systemClock{}
	}
	if d.NewTicker == nil {
		d.NewTicker = NewStdTicker
	}
	if d.Schedule == nil {
		d.Schedule = AfterFunc
	}
	return d
}

// admit must not be called with the engine lock held.
func (d Deps) admit(kind Kind, start func()) bool {
	if d.Gate == nil {
		start()
		return true
	}
	return d.Gate(kind, start)
}

// apply runs side effects in order: cues, the stats flush, then events.
func (d Deps) apply(fx effects, listeners []Listener) {
	if d.Cues != nil {
		for _, cue := range fx.cues {
			d.Cues.PlayCue(cue)
		}
	}

	if fx.flush != nil && d.Recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.Recorder.RecordActivity(ctx, *fx.flush); err != nil {
			log.Printf("[TIMER] Failed to record %s for user %s: %v", fx.flush.Activity, fx.flush.UserID, err)
		}
		cancel()
	}

	for _, e := range fx.events {
		for _, l := range listeners {
			l(e)
		}
	}
}

// runTicker pumps ticks from t into onTick until stop is closed. The id lets
// the engine discard a tick that raced with a pause or reset.
func runTicker(t Ticker, stop <-chan struct{}, id uint64, onTick func(uint64)) {
	go func() {
		for {
			select {
			case <-stop:
				return
			case _, ok := <-t.C():
				if !ok {
					return
				}
				onTick(id)
			}
		}
	}()
}

// measure tracks wall-clock activity time excluding pauses.
type measure struct {
	accumulated time.Duration
	segmentFrom time.Time
	inSegment   bool
}

func (m *measure) begin(now time.Time) {
	m.segmentFrom = now
	m.inSegment = true
}

func (m *measure) suspend(now time.Time) {
	if m.inSegment {
		m.accumulated += now.Sub(m.segmentFrom)
		m.inSegment = false
	}
}

func (m *measure) total(now time.Time) time.Duration {
	d := m.accumulated
	if m.inSegment {
		d += now.Sub(m.segmentFrom)
	}
	return d
}

// drain returns the measured time and zeroes the counter so a second flush
// records nothing.
func (m *measure) drain(now time.Time) time.Duration {
	d := m.total(now)
	m.accumulated = 0
	m.inSegment = false
	return d
}

// tickLoop owns the ticker of one engine. Every start or halt bumps id, so a
// tick that was already in flight when the loop changed is ignored.
type tickLoop struct {
	newTicker TickerFactory
	interval  time.Duration
	ticker    Ticker
	stop      chan struct{}
	id        uint64
}

func (l *tickLoop) start(onTick func(uint64)) {
	l.halt()
	l.id++
	l.ticker = l.newTicker(l.interval)
	l.stop = make(chan struct{})
	runTicker(l.ticker, l.stop, l.id, onTick)
}

func (l *tickLoop) halt() {
	if l.ticker != nil {
		l.ticker.Stop()
		close(l.stop)
		l.ticker = nil
		l.stop = nil
	}
	l.id++
}

func (l *tickLoop) current(id uint64) bool {
	return l.ticker != nil && id == l.id
}
