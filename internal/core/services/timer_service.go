package services

import (
	"errors"
	"log"
	"sync"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

var ErrTimerBusy = errors.New("another timer is already active")

const (
	StreamEventTimer = "timer"
	StreamEventCue   = "cue"

	subscriberBuffer = 64
)

type StreamMessage struct {
	Event   string
	Payload any
}

type CueMessage struct {
	Cue synth.Cue `json:"cue"`
	URL string    `json:"url"`
}

// EventHub fans timer messages out to live subscribers. A subscriber that
// falls behind loses messages instead of blocking the engine.
type EventHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan StreamMessage
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[int]chan StreamMessage)}
}

func (h *EventHub) Subscribe() (<-chan StreamMessage, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan StreamMessage, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(ch)
		})
	}
}

func (h *EventHub) Publish(msg StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- msg:
		default:
			log.Printf("[TIMER] Subscriber %d is slow, dropping %s message", id, msg.Event)
		}
	}
}

func (h *EventHub) PlayCue(cue synth.Cue) {
	h.Publish(StreamMessage{
		Event:   StreamEventCue,
		Payload: CueMessage{Cue: cue, URL: "/api/v1/audio/tones/" + string(cue)},
	})
}

func (h *EventHub) forward(e timer.Event) {
	h.Publish(StreamMessage{Event: StreamEventTimer, Payload: e})
}

type userTimers struct {
	focus     *timer.FocusTimer
	breathing *timer.BreathingTimer
	hub       *EventHub

	// gate serializes the exclusivity check with the start it guards.
	gate sync.Mutex
}

func (ut *userTimers) admit(kind timer.Kind, start func()) bool {
	ut.gate.Lock()
	defer ut.gate.Unlock()

	switch kind {
	case timer.KindFocus:
		if ut.breathing.Running() {
			return false
		}
	case timer.KindBreathing:
		if ut.focus.Running() {
			return false
		}
	}
	start()
	return true
}

type TimerSnapshot struct {
	Focus     timer.FocusState     `json:"focus"`
	Breathing timer.BreathingState `json:"breathing"`
}

// TimerService keeps one focus and one breathing engine per user. Only one of
// them may run at a time, including focus phases started by auto-cycle.
type TimerService struct {
	recorder timer.Recorder
	settings timer.FocusSettings
	pattern  timer.Pattern
	deps     timer.Deps

	mu    sync.Mutex
	users map[string]*userTimers
}

func NewTimerService(recorder timer.Recorder, settings timer.FocusSettings, pattern timer.Pattern, deps timer.Deps) *TimerService {
	return &TimerService{
		recorder: recorder,
		settings: settings,
		pattern:  pattern,
		deps:     deps,
		users:    make(map[string]*userTimers),
	}
}

func (s *TimerService) timers(userID string) *userTimers {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ut, ok := s.users[userID]; ok {
		return ut
	}

	hub := NewEventHub()
	deps := s.deps
	deps.Recorder = s.recorder
	deps.Cues = hub

	ut := &userTimers{hub: hub}
	deps.Gate = ut.admit
	ut.focus = timer.NewFocusTimer(userID, s.settings, deps)
	ut.breathing = timer.NewBreathingTimer(userID, s.pattern, 0, deps)
	ut.focus.Subscribe(hub.forward)
	ut.breathing.Subscribe(hub.forward)
	s.users[userID] = ut
	return ut
}

func (s *TimerService) StartFocus(userID string) (timer.FocusState, error) {
	ut := s.timers(userID)
	if !ut.admit(timer.KindFocus, ut.focus.Start) {
		return ut.focus.Snapshot(), ErrTimerBusy
	}
	return ut.focus.Snapshot(), nil
}

func (s *TimerService) PauseFocus(userID string) timer.FocusState {
	ut := s.timers(userID)
	ut.focus.Pause()
	return ut.focus.Snapshot()
}

func (s *TimerService) ResumeFocus(userID string) timer.FocusState {
	ut := s.timers(userID)
	ut.focus.Resume()
	return ut.focus.Snapshot()
}

func (s *TimerService) ResetFocus(userID string) timer.FocusState {
	ut := s.timers(userID)
	ut.focus.Reset()
	return ut.focus.Snapshot()
}

func (s *TimerService) SelectFocusMode(userID string, mode timer.Mode) (timer.FocusState, error) {
	ut := s.timers(userID)
	err := ut.focus.SelectMode(mode)
	return ut.focus.Snapshot(), err
}

func (s *TimerService) SetAutoCycle(userID string, enabled bool) (timer.FocusState, error) {
	ut := s.timers(userID)
	err := ut.focus.SetAutoCycle(enabled)
	return ut.focus.Snapshot(), err
}

func (s *TimerService) StartBreathing(userID string) (timer.BreathingState, error) {
	ut := s.timers(userID)
	if !ut.admit(timer.KindBreathing, ut.breathing.Start) {
		return ut.breathing.Snapshot(), ErrTimerBusy
	}
	return ut.breathing.Snapshot(), nil
}

func (s *TimerService) PauseBreathing(userID string) timer.BreathingState {
	ut := s.timers(userID)
	ut.breathing.Pause()
	return ut.breathing.Snapshot()
}

func (s *TimerService) ResumeBreathing(userID string) timer.BreathingState {
	ut := s.timers(userID)
	ut.breathing.Resume()
	return ut.breathing.Snapshot()
}

func (s *TimerService) StopBreathing(userID string) timer.BreathingState {
	ut := s.timers(userID)
	ut.breathing.Stop()
	return ut.breathing.Snapshot()
}

func (s *TimerService) Snapshot(userID string) TimerSnapshot {
	ut := s.timers(userID)
	return TimerSnapshot{
		Focus:     ut.focus.Snapshot(),
		Breathing: ut.breathing.Snapshot(),
	}
}

// Subscribe streams the user's timer and cue messages until cancel is called.
func (s *TimerService) Subscribe(userID string) (<-chan StreamMessage, func()) {
	return s.timers(userID).hub.Subscribe()
}

// Shutdown stops every engine so measured time gets flushed.
func (s *TimerService) Shutdown() {
	s.mu.Lock()
	all := make([]*userTimers, 0, len(s.users))
	for _, ut := range s.users {
		all = append(all, ut)
	}
	s.mu.Unlock()

	for _, ut := range all {
		ut.focus.Stop()
		ut.breathing.Stop()
	}
	log.Printf("[TIMER] Stopped timers of %d users", len(all))
}
