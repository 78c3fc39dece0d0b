// Package assembler turns raw byte chunks into discrete, bounded lines.
//
// # Overview
//
// The Assembler is fed whatever the source poller read on a tick. Chunks do
// not respect line boundaries, so unterminated bytes are kept in a pending
// buffer until a newline shows up in a later chunk.
//
// # Limits
//
// Two caps bound memory regardless of input shape:
//
//   - max line bytes: a line longer than this is cut to exactly this many
//     bytes and flagged Truncated. The rest of the line, up to its newline,
//     is dropped rather than buffered.
//   - max buffer bytes: an unterminated segment never grows past this. When
//     more bytes arrive for a segment already at the cap, the retained
//     min(max line, max buffer) bytes are force-cut as a Truncated line and
//     the remainder keeps buffering as the next line.
//
// A source that never writes a newline therefore costs at most
// min(max line, max buffer) bytes and still produces output. If a cut lands
// between a '\r' and its '\n', the stray '\r' is dropped rather than
// returned as an empty line.
//
// # Terminators
//
// Lines end at '\n'. A '\r' directly before the newline is stripped so CRLF
// input prints cleanly. Empty lines are real lines and are returned.
//
// # End of stream
//
// Flush returns any residue as one final Truncated line. Reset throws the
// residue away; the poller calls it when the followed file is truncated or
// rotated, since a partial line spanning that point cannot be completed.
package assembler
