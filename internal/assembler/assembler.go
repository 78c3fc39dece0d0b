package assembler

import "bytes"

const (
	// DefaultMaxLineBytes caps a single line when no limit is configured.
	DefaultMaxLineBytes = 64 * 1024
	// DefaultMaxBufferBytes caps pending unterminated bytes when no limit is configured.
	DefaultMaxBufferBytes = 1024 * 1024
)

// Line is one assembled line without its terminator.
type Line struct {
	Text      []byte
	Truncated bool
}

// Assembler splits a byte stream into lines under fixed memory limits.
// It is not safe for concurrent use.
type Assembler struct {
	maxLine   int
	maxBuffer int

	pending  []byte
	seen     int  // bytes of the current segment, retained or dropped
	cr       bool // last byte of the current segment was '\r'
	afterCut bool // the current segment follows a buffer-cap cut
}

// New returns an Assembler. Non-positive limits fall back to the defaults.
func New(maxLineBytes, maxBufferBytes int) *Assembler {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	if maxBufferBytes <= 0 {
		maxBufferBytes = DefaultMaxBufferBytes
	}
	a := &Assembler{maxLine: maxLineBytes, maxBuffer: maxBufferBytes}
	a.pending = make([]byte, 0, min(a.retain(), 4096))
	return a
}

// Feed appends p to the pending buffer and returns every line completed or
// force-cut by it, in stream order.
func (a *Assembler) Feed(p []byte) []Line {
	var lines []Line
	for len(p) > 0 {
		idx := bytes.IndexByte(p, '\n')
		if idx < 0 {
			lines = a.absorb(p, lines)
			break
		}
		lines = a.absorb(p[:idx], lines)
		if line, ok := a.terminate(); ok {
			lines = append(lines, line)
		}
		p = p[idx+1:]
	}
	return lines
}

// Flush returns the unterminated residue as a final truncated line. ok is
// false when the stream ended exactly on a terminator.
func (a *Assembler) Flush() (line Line, ok bool) {
	if a.seen == 0 || a.strayCR() {
		a.Reset()
		return Line{}, false
	}
	line = Line{Text: bytes.Clone(a.pending), Truncated: true}
	a.Reset()
	return line, true
}

// Reset discards the pending buffer.
func (a *Assembler) Reset() {
	a.pending = a.pending[:0]
	a.seen = 0
	a.cr = false
	a.afterCut = false
}

// Pending reports how many unterminated bytes are currently held.
func (a *Assembler) Pending() int {
	return len(a.pending)
}

// retain is the most bytes of a single segment ever held in memory.
func (a *Assembler) retain() int {
	return min(a.maxLine, a.maxBuffer)
}

// absorb takes unterminated bytes. Past the line cap the excess is only
// counted. Once the segment reaches the buffer cap with more bytes arriving,
// the retained bytes are cut as a truncated line and buffering starts over.
func (a *Assembler) absorb(p []byte, lines []Line) []Line {
	for len(p) > 0 {
		if a.seen >= a.maxBuffer {
			lines = append(lines, a.cut())
			continue
		}
		n := min(len(p), a.maxBuffer-a.seen)
		keep := min(n, max(a.retain()-len(a.pending), 0))
		a.pending = append(a.pending, p[:keep]...)
		a.seen += n
		a.cr = p[n-1] == '\r'
		p = p[n:]
	}
	return lines
}

func (a *Assembler) cut() Line {
	line := Line{Text: bytes.Clone(a.pending), Truncated: true}
	a.Reset()
	a.afterCut = true
	return line
}

func (a *Assembler) strayCR() bool {
	return a.afterCut && a.seen == 1 && a.cr
}

// terminate ends the current segment. ok is false when the segment is only
// the '\r' of a CRLF whose line was already cut at the buffer cap.
func (a *Assembler) terminate() (line Line, ok bool) {
	if a.strayCR() {
		a.Reset()
		return Line{}, false
	}
	length := a.seen
	keep := len(a.pending)
	if a.cr {
		length--
		keep = min(keep, length)
	}
	line = Line{Text: bytes.Clone(a.pending[:keep]), Truncated: length > a.maxLine}
	a.Reset()
	return line, true
}
