// Package schedule decides which assembled lines reach the terminal.
//
// A Scheduler owns two timers. The throttle window lets at most one normal
// line through per line period; later normal lines inside the window are
// dropped, not queued. The idle timer produces a notice once per idle period
// of silence. Lines matching the urgent pattern skip the throttle entirely
// and leave the window untouched. Every observed line, whatever its fate,
// counts as activity for the idle timer.
//
// Time comes from a clockwork.Clock so tests can drive both timers with a
// fake clock.
package schedule

import (
	"fmt"
	"regexp"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultLinePeriod applies when no line period is configured.
const DefaultLinePeriod = 5 * time.Second

// Decision is the fate of one observed line.
type Decision int

const (
	// Drop discards a normal line inside an active window.
	Drop Decision = iota
	// Emit prints a normal line and opens a new window.
	Emit
	// EmitUrgent prints a line that matched the pattern.
	EmitUrgent
)

func (d Decision) String() string {
	switch d {
	case Drop:
		return "drop"
	case Emit:
		return "emit"
	case EmitUrgent:
		return "emit-urgent"
	default:
		return "unknown"
	}
}

// Options configure a Scheduler.
type Options struct {
	LinePeriod time.Duration
	// IdlePeriod of zero disables idle notices.
	IdlePeriod time.Duration
	// Pattern marks urgent lines; nil means no line is urgent.
	Pattern *regexp.Regexp
}

// Scheduler holds the throttle window and idle timer.
type Scheduler struct {
	clock      clockwork.Clock
	linePeriod time.Duration
	idlePeriod time.Duration
	pattern    *regexp.Regexp

	windowStart     time.Time
	emittedInWindow bool
	lastActivity    time.Time
}

// New returns a Scheduler whose idle timer starts now.
func New(opts Options, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.LinePeriod <= 0 {
		opts.LinePeriod = DefaultLinePeriod
	}
	return &Scheduler{
		clock:        clock,
		linePeriod:   opts.LinePeriod,
		idlePeriod:   max(opts.IdlePeriod, 0),
		pattern:      opts.Pattern,
		lastActivity: clock.Now(),
	}
}

// Urgent reports whether text matches the pattern.
func (s *Scheduler) Urgent(text []byte) bool {
	return s.pattern != nil && s.pattern.Match(text)
}

// Observe records a line and decides whether it is printed.
func (s *Scheduler) Observe(text []byte) Decision {
	now := s.clock.Now()
	s.lastActivity = now

	if s.Urgent(text) {
		return EmitUrgent
	}
	if s.emittedInWindow && now.Sub(s.windowStart) < s.linePeriod {
		return Drop
	}
	s.windowStart = now
	s.emittedInWindow = true
	return Emit
}

// Tick is called on every poll. It returns the idle notice when the idle
// period has passed without activity, and restarts the idle timer.
func (s *Scheduler) Tick() (string, bool) {
	if s.idlePeriod <= 0 {
		return "", false
	}
	now := s.clock.Now()
	if now.Sub(s.lastActivity) < s.idlePeriod {
		return "", false
	}
	s.lastActivity = now
	return IdleNotice(s.idlePeriod), true
}

// InWindow reports whether a normal line would currently be dropped.
func (s *Scheduler) InWindow() bool {
	return s.emittedInWindow && s.clock.Since(s.windowStart) < s.linePeriod
}

// IdleNotice formats the idle notice for period.
func IdleNotice(period time.Duration) string {
	return fmt.Sprintf("[no output for %d seconds]", int64(period/time.Second))
}
