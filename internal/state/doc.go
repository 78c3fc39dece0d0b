// Package state keeps run statistics for tailbut.
//
// # Overview
//
// The Store counts what happened to every observed line (emitted, urgent,
// dropped, truncated) along with source events such as truncation and
// rotation. The poll loop is the only writer; readers take a Snapshot, which
// is a plain value copy.
//
// # Concurrency Model
//
// The Store uses a readers-writer lock:
//
//   - Line, Read, Idle, Truncated, Rotated, Fail: write lock
//   - Snapshot: read lock
//
// This lets a status dump (SIGUSR1) read counters from the signal goroutine
// while the loop keeps updating them.
//
// # Usage Example
//
//	var stats state.Store
//	stats.Start(clock.Now())
//	stats.Line(state.Emitted, false, clock.Now())
//	snap := stats.Snapshot()
//	log.Infof("emitted %d of %d lines", snap.LinesEmitted, snap.LinesObserved)
//
// The zero Store is ready to use.
package state
