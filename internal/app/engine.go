package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/five82/tailbut/internal/assembler"
	"github.com/five82/tailbut/internal/highlight"
	"github.com/five82/tailbut/internal/schedule"
	"github.com/five82/tailbut/internal/source"
	"github.com/five82/tailbut/internal/state"
)

const defaultPollInterval = 200 * time.Millisecond

// TruncatedMarker is appended to lines cut at the line cap.
const TruncatedMarker = " [truncated]"

// Engine drives one source through assembly, scheduling and rendering. It is
// owned by a single goroutine.
type Engine struct {
	src       source.Source
	assembler *assembler.Assembler
	scheduler *schedule.Scheduler
	render    *highlight.Highlighter
	out       *bufio.Writer
	stats     *state.Store
	clock     clockwork.Clock
	interval  time.Duration
	logger    *log.Entry
}

// EngineOptions wire an Engine. Nil Stats, Clock and Logger get defaults.
type EngineOptions struct {
	Source      source.Source
	Assembler   *assembler.Assembler
	Scheduler   *schedule.Scheduler
	Highlighter *highlight.Highlighter
	Out         io.Writer
	Stats       *state.Store
	Clock       clockwork.Clock
	// PollInterval is the tick period between polls.
	PollInterval time.Duration
	Logger       *log.Entry
}

// NewEngine builds an Engine from its parts.
func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		src:       opts.Source,
		assembler: opts.Assembler,
		scheduler: opts.Scheduler,
		render:    opts.Highlighter,
		out:       bufio.NewWriter(opts.Out),
		stats:     opts.Stats,
		clock:     opts.Clock,
		interval:  opts.PollInterval,
		logger:    opts.Logger,
	}
	if e.stats == nil {
		e.stats = &state.Store{}
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.interval <= 0 {
		e.interval = defaultPollInterval
	}
	if e.logger == nil {
		e.logger = log.NewEntry(log.StandardLogger())
	}
	return e
}

// Run polls until the source ends, fails, or ctx is cancelled. Cancellation
// and EOF return nil after the residual partial line is printed.
func (e *Engine) Run(ctx context.Context) error {
	e.stats.Start(e.clock.Now())

	ticker := e.clock.NewTicker(e.interval)
	defer ticker.Stop()

	var ready <-chan struct{}
	if w, ok := e.src.(source.Waker); ok {
		ready = w.Ready()
	}

	for {
		done, err := e.Step(ctx)
		if done {
			return err
		}
		select {
		case <-ctx.Done():
			e.logger.Debug("follow cancelled")
			return e.finish(nil)
		case <-ticker.Chan():
		case <-ready:
		}
	}
}

// Step performs one poll cycle: drain the source while it reports more data,
// print what the scheduler lets through, then check for idleness. done is
// true once the source has ended or failed.
func (e *Engine) Step(ctx context.Context) (done bool, err error) {
	for {
		res, err := e.src.Poll(ctx)
		if err != nil {
			e.stats.Fail(err)
			e.logger.WithError(err).Debug("source failed")
			return true, e.finish(err)
		}

		e.stats.Read(len(res.Data))
		switch res.Kind {
		case source.Truncated:
			e.stats.Truncated()
		case source.Rotated:
			e.stats.Rotated()
		}
		if res.Resets() {
			if n := e.assembler.Pending(); n > 0 {
				e.logger.WithField("bytes", n).Debug("discarding partial line")
			}
			e.assembler.Reset()
		}

		for _, line := range e.assembler.Feed(res.Data) {
			e.observe(line)
		}

		if res.Kind == source.EOF {
			e.logger.Debug("input ended")
			return true, e.finish(nil)
		}
		if !res.More || ctx.Err() != nil {
			break
		}
	}

	if notice, ok := e.scheduler.Tick(); ok {
		e.stats.Idle(e.clock.Now())
		e.write(notice)
	}
	if err := e.out.Flush(); err != nil {
		return true, fmt.Errorf("write output: %w", err)
	}
	return false, nil
}

func (e *Engine) observe(line assembler.Line) {
	decision := e.scheduler.Observe(line.Text)

	outcome := state.Dropped
	switch decision {
	case schedule.Emit:
		outcome = state.Emitted
	case schedule.EmitUrgent:
		outcome = state.EmittedUrgent
	}
	e.stats.Line(outcome, line.Truncated, e.clock.Now())
	if line.Truncated {
		e.logger.WithFields(log.Fields{
			"bytes":    len(line.Text),
			"decision": decision.String(),
		}).Warn("line truncated")
	}
	if decision == schedule.Drop {
		return
	}

	text := e.render.Render(line.Text, decision == schedule.EmitUrgent)
	if line.Truncated {
		text += TruncatedMarker
	}
	e.write(text)
}

func (e *Engine) write(text string) {
	_, _ = e.out.WriteString(text)
	_ = e.out.WriteByte('\n')
}

// finish prints the residual partial line and flushes output. cause is
// returned unchanged unless it is nil and the flush fails.
func (e *Engine) finish(cause error) error {
	if line, ok := e.assembler.Flush(); ok {
		e.observe(line)
	}
	if err := e.out.Flush(); err != nil && cause == nil {
		return fmt.Errorf("write output: %w", err)
	}
	return cause
}

// Stats returns the counters collected so far.
func (e *Engine) Stats() state.Snapshot {
	return e.stats.Snapshot()
}
