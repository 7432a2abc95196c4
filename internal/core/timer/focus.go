package timer

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/domain"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
)

type Mode string

const (
	ModeWork       Mode = "work"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

const (
	CycleLength          = 8
	WorkSessionsPerCycle = 4

	DefaultFocusTick      = time.Second
	DefaultAutoStartDelay = time.Second
)

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeWork, ModeShortBreak, ModeLongBreak:
		return m, nil
	}
	return "", ErrInvalidMode
}

func (m Mode) activity() (domain.ActivityType, domain.BreakKind) {
	switch m {
	case ModeShortBreak:
		return domain.ActivityRest, domain.BreakShort
	case ModeLongBreak:
		return domain.ActivityRest, domain.BreakLong
	}
	return domain.ActivityFocus, domain.BreakNone
}

type Durations struct {
	Work       time.Duration
	ShortBreak time.Duration
	LongBreak  time.Duration
}

func DefaultDurations() Durations {
	return Durations{
		Work:       25 * time.Minute,
		ShortBreak: 5 * time.Minute,
		LongBreak:  15 * time.Minute,
	}
}

func (d Durations) For(m Mode) time.Duration {
	switch m {
	case ModeShortBreak:
		return d.ShortBreak
	case ModeLongBreak:
		return d.LongBreak
	}
	return d.Work
}

// ModeForPosition maps an auto-cycle slot (1..8) to its mode: odd slots are
// work, 8 is the long break, the rest are short breaks.
func ModeForPosition(pos int) Mode {
	switch {
	case pos == CycleLength:
		return ModeLongBreak
	case pos%2 == 1:
		return ModeWork
	}
	return ModeShortBreak
}

func NextPosition(pos int) int {
	if pos >= CycleLength || pos < 1 {
		return 1
	}
	return pos + 1
}

func positionForMode(m Mode) int {
	switch m {
	case ModeShortBreak:
		return 2
	case ModeLongBreak:
		return CycleLength
	}
	return 1
}

// SuggestNext is the manual policy: every fourth completed work session earns
// a long break, any break leads back to work.
func SuggestNext(completed Mode, completedWork int) Mode {
	if completed != ModeWork {
		return ModeWork
	}
	if completedWork > 0 && completedWork%WorkSessionsPerCycle == 0 {
		return ModeLongBreak
	}
	return ModeShortBreak
}

type FocusSettings struct {
	Durations      Durations
	AutoCycle      bool
	TickInterval   time.Duration
	AutoStartDelay time.Duration
}

type FocusState struct {
	Kind             Kind    `json:"kind"`
	Mode             Mode    `json:"mode"`
	CyclePosition    int     `json:"cycle_position"`
	AutoCycle        bool    `json:"auto_cycle"`
	RemainingSeconds int     `json:"remaining_seconds"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
	Running          bool    `json:"running"`
	Paused           bool    `json:"paused"`
	CompletedWork    int     `json:"completed_work_sessions"`
}

type FocusTimer struct {
	mu sync.Mutex

	userID    string
	settings  FocusSettings
	deps      Deps
	loop      tickLoop
	listeners []Listener

	mode          Mode
	position      int
	remaining     time.Duration
	running       bool
	paused        bool
	elapsed       measure
	completedWork int
	cancelAuto    func()
}

func NewFocusTimer(userID string, settings FocusSettings, deps Deps) *FocusTimer {
	if settings.Durations == (Durations{}) {
		settings.Durations = DefaultDurations()
	}
	if settings.TickInterval <= 0 {
		settings.TickInterval = DefaultFocusTick
	}
	if settings.AutoStartDelay < 0 {
		settings.AutoStartDelay = 0
	}
	deps = deps.withDefaults()

	return &FocusTimer{
		userID:    userID,
		settings:  settings,
		deps:      deps,
		loop:      tickLoop{newTicker: deps.NewTicker, interval: settings.TickInterval},
		mode:      ModeWork,
		position:  1,
		remaining: settings.Durations.Work,
	}
}

func (t *FocusTimer) Kind() Kind { return KindFocus }

func (t *FocusTimer) Subscribe(l Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, l)
}

func (t *FocusTimer) do(fn func(fx *effects)) {
	t.mu.Lock()
	var fx effects
	fn(&fx)
	listeners := t.listeners
	t.mu.Unlock()

	t.deps.apply(fx, listeners)
}

func (t *FocusTimer) event(typ EventType) Event {
	now := t.deps.Clock.Now()
	return Event{
		Type:             typ,
		Kind:             KindFocus,
		At:               now,
		Mode:             t.mode,
		CyclePosition:    t.position,
		RemainingSeconds: int(t.remaining / time.Second),
		ElapsedSeconds:   t.elapsed.total(now).Seconds(),
	}
}

// Start begins the selected mode. It is a no-op while already running and
// behaves like Resume when paused.
func (t *FocusTimer) Start() {
	t.do(func(fx *effects) {
		if t.running {
			if t.paused {
				t.resumeLocked(fx)
			}
			return
		}
		t.startLocked(fx)
	})
}

func (t *FocusTimer) startLocked(fx *effects) {
	t.cancelPendingAuto()
	if t.remaining <= 0 {
		t.remaining = t.settings.Durations.For(t.mode)
	}
	t.running = true
	t.paused = false
	t.elapsed.begin(t.deps.Clock.Now())
	t.loop.start(t.handleTick)

	fx.cue(synth.CueStart)
	fx.emit(t.event(EventStarted))
}

func (t *FocusTimer) Pause() {
	t.do(func(fx *effects) {
		if !t.running || t.paused {
			return
		}
		t.paused = true
		t.elapsed.suspend(t.deps.Clock.Now())
		t.loop.halt()
		fx.emit(t.event(EventPaused))
	})
}

func (t *FocusTimer) Resume() {
	t.do(func(fx *effects) {
		if !t.running || !t.paused {
			return
		}
		t.resumeLocked(fx)
	})
}

func (t *FocusTimer) resumeLocked(fx *effects) {
	t.paused = false
	t.elapsed.begin(t.deps.Clock.Now())
	t.loop.start(t.handleTick)
	fx.emit(t.event(EventResumed))
}

// Reset stops the timer and flushes elapsed time. Auto-cycle rewinds to the
// first work slot; otherwise the selected mode is kept.
func (t *FocusTimer) Reset() {
	t.do(func(fx *effects) {
		t.cancelPendingAuto()
		t.loop.halt()
		t.flushLocked(fx)
		t.running = false
		t.paused = false

		if t.settings.AutoCycle {
			t.position = 1
			t.mode = ModeWork
		}
		t.remaining = t.settings.Durations.For(t.mode)
		fx.emit(t.event(EventReset))
	})
}

// Tick advances the countdown by one tick interval.
func (t *FocusTimer) Tick() {
	t.do(func(fx *effects) {
		t.tickLocked(fx)
	})
}

func (t *FocusTimer) handleTick(id uint64) {
	t.do(func(fx *effects) {
		if !t.loop.current(id) {
			return
		}
		t.tickLocked(fx)
	})
}

func (t *FocusTimer) tickLocked(fx *effects) {
	if !t.running || t.paused {
		return
	}
	t.remaining -= t.settings.TickInterval
	if t.remaining <= 0 {
		t.remaining = 0
		t.completeLocked(fx)
		return
	}
	fx.emit(t.event(EventTick))
}

// CompleteSession ends the running session early as if it had run out.
func (t *FocusTimer) CompleteSession() {
	t.do(func(fx *effects) {
		if !t.running {
			return
		}
		t.completeLocked(fx)
	})
}

func (t *FocusTimer) completeLocked(fx *effects) {
	t.loop.halt()
	t.flushLocked(fx)
	t.running = false
	t.paused = false

	finished := t.mode
	if finished == ModeWork {
		t.completedWork++
	}

	if t.settings.AutoCycle {
		t.position = NextPosition(t.position)
		t.mode = ModeForPosition(t.position)
		t.scheduleAutoStart()
	} else {
		t.mode = SuggestNext(finished, t.completedWork)
		t.position = positionForMode(t.mode)
	}
	t.remaining = t.settings.Durations.For(t.mode)

	e := t.event(EventCompleted)
	e.Mode = finished
	e.NextMode = t.mode
	e.AutoStart = t.settings.AutoCycle
	fx.cue(synth.CueEnd)
	fx.emit(e)
}

func (t *FocusTimer) scheduleAutoStart() {
	t.cancelPendingAuto()
	token := t.loop.id
	t.cancelAuto = t.deps.Schedule(t.settings.AutoStartDelay, func() {
		admitted := t.deps.admit(KindFocus, func() {
			t.do(func(fx *effects) {
				if t.running || !t.settings.AutoCycle || t.loop.id != token {
					return
				}
				t.cancelAuto = nil
				t.startLocked(fx)
			})
		})
		if !admitted {
			t.do(func(fx *effects) {
				if t.loop.id == token {
					t.cancelAuto = nil
				}
			})
			log.Printf("[TIMER] Dropped focus auto-start for %s, another timer is active", t.userID)
		}
	})
}

func (t *FocusTimer) cancelPendingAuto() {
	if t.cancelAuto != nil {
		t.cancelAuto()
		t.cancelAuto = nil
	}
}

func (t *FocusTimer) flushLocked(fx *effects) {
	d := t.elapsed.drain(t.deps.Clock.Now())
	if d <= 0 {
		return
	}
	activity, kind := t.mode.activity()
	fx.flush = &domain.ActivityInput{
		UserID:   t.userID,
		Activity: activity,
		Duration: d,
		Break:    kind,
	}
}

// SelectMode picks the next mode to run. It fails while a session is running.
func (t *FocusTimer) SelectMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}

	var err error
	t.do(func(fx *effects) {
		if t.running {
			err = ErrTimerRunning
			return
		}
		t.cancelPendingAuto()
		t.mode = m
		t.position = positionForMode(m)
		t.remaining = t.settings.Durations.For(m)
		fx.emit(t.event(EventReset))
	})
	return err
}

func (t *FocusTimer) SetAutoCycle(enabled bool) error {
	var err error
	t.do(func(fx *effects) {
		if t.running {
			err = ErrTimerRunning
			return
		}
		t.cancelPendingAuto()
		t.settings.AutoCycle = enabled
		if enabled {
			t.position = 1
			t.mode = ModeWork
			t.remaining = t.settings.Durations.Work
		}
		fx.emit(t.event(EventReset))
	})
	return err
}

// Stop is Reset; it lets the service treat both engines alike.
func (t *FocusTimer) Stop() {
	t.Reset()
}

func (t *FocusTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *FocusTimer) Snapshot() FocusState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return FocusState{
		Kind:             KindFocus,
		Mode:             t.mode,
		CyclePosition:    t.position,
		AutoCycle:        t.settings.AutoCycle,
		RemainingSeconds: int(t.remaining / time.Second),
		ElapsedSeconds:   t.elapsed.total(t.deps.Clock.Now()).Seconds(),
		Running:          t.running,
		Paused:           t.paused,
		CompletedWork:    t.completedWork,
	}
}
