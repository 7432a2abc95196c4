package commands

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/synth"
	"github.com/comitanigiacomo/kanso-wellness-engine/internal/core/timer"
)

// newTicker is swapped by tests to run sessions faster than wall time.
var newTicker timer.TickerFactory = timer.NewStdTicker

// eventPrinter serializes output from the ticker and auto-start goroutines.
// It doubles as the CuePlayer since a terminal has no audio session.
type eventPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *eventPrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *eventPrinter) PlayCue(cue synth.Cue) {
	p.printf("  ~ %s\n", cue)
}

func (p *eventPrinter) focusEvent(e timer.Event) {
	switch e.Type {
	case timer.EventStarted:
		p.printf("%s %s started, %s to go (slot %d/8)\n", e.At.Format(time.TimeOnly), e.Mode, formatClock(e.RemainingSeconds), e.CyclePosition)
	case timer.EventTick:
		if e.RemainingSeconds > 0 && e.RemainingSeconds%60 == 0 {
			p.printf("  %s left\n", formatClock(e.RemainingSeconds))
		}
	case timer.EventCompleted:
		p.printf("%s %s complete, next up: %s\n", e.At.Format(time.TimeOnly), e.Mode, e.NextMode)
	case timer.EventReset:
		p.printf("%s stopped after %.0fs\n", e.At.Format(time.TimeOnly), e.ElapsedSeconds)
	}
}

func (p *eventPrinter) breathingEvent(e timer.Event) {
	switch e.Type {
	case timer.EventPhaseChange:
		p.printf("  %-8s %.0fs  (cycle %d)\n", e.Phase, e.TransitionSeconds, e.Cycles+1)
	case timer.EventStopped:
		p.printf("%s stopped after %d cycles\n", e.At.Format(time.TimeOnly), e.Cycles)
	}
}
