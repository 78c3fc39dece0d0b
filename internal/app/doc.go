// Package app is the composition root of tailbut.
//
// # Overview
//
// Run turns a validated config.Config into a running follow loop:
//
//	config ─> gate ─> source ─┐
//	                          ▼
//	                 Engine.Run (one goroutine)
//	                          │
//	   poll ─> assembler ─> scheduler ─> highlighter ─> stdout
//
// # Engine
//
// The Engine owns every piece of mutable state: the pending buffer, the
// throttle window and idle timer, and (through the source) the file offset.
// Each cycle it polls the source, keeps polling while the source reports more
// data is ready, feeds the bytes to the assembler, and prints what the
// scheduler lets through. The idle check runs once per cycle, after the data.
//
// Cycles are driven by a ticker at the poll interval. Sources that implement
// source.Waker can trigger a cycle early (fsnotify for files, the reader
// goroutine for stdin).
//
// # Termination
//
//   - EOF: the residual partial line is printed and Run returns nil.
//   - Context cancelled (SIGINT, SIGTERM): same as EOF.
//   - Source error: the residual line is printed and the error is returned.
//
// # Errors
//
// Run returns errors wrapping config.ErrInvalid, gate.ErrRefused or
// source.ErrFatalIO so cmd/tailbut can map them to exit codes with errors.Is.
package app
