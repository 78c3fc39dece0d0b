// Package source produces raw bytes from the followed input on every poll.
//
// FileSource follows a path: it re-checks the file size on each poll,
// treats shrinking as truncation and a replaced path as rotation, and
// tolerates the path briefly disappearing for a bounded number of polls.
// ReaderSource wraps a blocking reader such as stdin behind the same
// non-blocking Poll so a single loop can drive either.
package source

import (
	"context"
	"errors"
)

// ErrFatalIO marks an error that must end the follow loop.
var ErrFatalIO = errors.New("fatal i/o error")

// Kind classifies a poll result.
type Kind int

const (
	// NoData means nothing new was available.
	NoData Kind = iota
	// Data carries bytes appended since the previous poll.
	Data
	// Truncated means the file shrank; Data holds bytes read from offset 0
	// and any pending partial line must be discarded before feeding it.
	Truncated
	// Rotated means the path now names a different file, handled like Truncated.
	Rotated
	// EOF means the stream ended cleanly; no further polls are useful.
	EOF
)

func (k Kind) String() string {
	switch k {
	case NoData:
		return "no-data"
	case Data:
		return "data"
	case Truncated:
		return "truncated"
	case Rotated:
		return "rotated"
	case EOF:
		return "eof"
	default:
		return "unknown"
	}
}

// Result is the outcome of one poll.
type Result struct {
	Kind Kind
	Data []byte
	// More is set when further bytes are known to be available right away.
	More bool
}

// Resets reports whether the pending partial line must be dropped.
func (r Result) Resets() bool {
	return r.Kind == Truncated || r.Kind == Rotated
}

// Source is polled by the follow loop. A non-nil error is always fatal.
type Source interface {
	Poll(ctx context.Context) (Result, error)
	Close() error
}

// Waker is implemented by sources that can signal new input before the next
// tick. The channel may be nil, in which case only ticks drive polling.
type Waker interface {
	Ready() <-chan struct{}
}

// DefaultChunkBytes bounds how much a single poll returns.
const DefaultChunkBytes = 64 * 1024

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
