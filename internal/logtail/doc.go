// Package logtail locates where the last N lines of a file begin.
//
// # Overview
//
// When tailbut starts following a file it normally begins at the end, like
// `tail -f`. With a backlog requested (`--lines N`) it first replays the last
// N lines, which means finding the byte offset at which those lines start
// without holding the file in memory.
//
// # Ring Buffer Algorithm
//
// Offset makes one sequential pass and keeps a circular buffer of the start
// offsets of the most recent maxLines lines:
//
//	1. Allocate a ring of maxLines offsets
//	2. Record offset 0 as the first line start
//	3. For each newline at position p (with p+1 < size):
//	   - Store p+1 at the current index
//	   - Increment index (wrapping at maxLines)
//	4. If fewer than maxLines starts were seen:
//	   - Return 0 (the whole file is the backlog)
//	5. Otherwise:
//	   - Return the ring entry at the current index (the oldest kept start)
//
// Memory is O(maxLines) regardless of file size or line length; unlike a
// bufio.Scanner pass there is no per-line length limit.
//
// # Error Handling
//
// Read errors are returned wrapped. The scan stops at the size passed in, so
// bytes appended while scanning are left for the poller to pick up.
package logtail
