package state

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the run counters.
type Snapshot struct {
	Started        time.Time
	LastEmit       time.Time
	LinesObserved  int64
	LinesEmitted   int64
	LinesUrgent    int64
	LinesDropped   int64
	LinesTruncated int64
	IdleNotices    int64
	Truncations    int64
	Rotations      int64
	BytesRead      int64
	LastError      error
}

// Suppressed returns the share of observed lines that were throttled away.
func (s Snapshot) Suppressed() float64 {
	if s.LinesObserved == 0 {
		return 0
	}
	return float64(s.LinesDropped) / float64(s.LinesObserved)
}

// Outcome is what happened to one observed line.
type Outcome int

const (
	Dropped Outcome = iota
	Emitted
	EmittedUrgent
)

// Store coordinates concurrent updates to the counters.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Start records the run start time.
func (s *Store) Start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Started = now
}

// Read adds n bytes pulled from the source.
func (s *Store) Read(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.BytesRead += int64(n)
}

// Line records the fate of one observed line.
func (s *Store) Line(outcome Outcome, truncated bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LinesObserved++
	if truncated {
		s.snapshot.LinesTruncated++
	}
	switch outcome {
	case Dropped:
		s.snapshot.LinesDropped++
		return
	case EmittedUrgent:
		s.snapshot.LinesUrgent++
	}
	s.snapshot.LinesEmitted++
	s.snapshot.LastEmit = now
}

// Idle records an idle notice.
func (s *Store) Idle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.IdleNotices++
	s.snapshot.LastEmit = now
}

// Truncated records a source truncation event.
func (s *Store) Truncated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Truncations++
}

// Rotated records a source rotation event.
func (s *Store) Rotated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Rotations++
}

// Fail records the error that ended the run.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastError = err
}

// Snapshot returns a copy of the current counters.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
