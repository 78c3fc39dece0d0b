package assembler

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func texts(lines []Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, string(l.Text))
	}
	return out
}

func TestFeed_SplitsAcrossChunks(t *testing.T) {
	a := New(64, 256)

	lines := a.Feed([]byte("alpha\nbra"))
	assert.Equal(t, []string{"alpha"}, texts(lines))
	assert.Equal(t, 3, a.Pending())

	lines = a.Feed([]byte("vo\ncharlie\n"))
	assert.Equal(t, []string{"bravo", "charlie"}, texts(lines))
	assert.Equal(t, 0, a.Pending())
	for _, l := range lines {
		assert.False(t, l.Truncated)
	}
}

func TestFeed_StripsCarriageReturn(t *testing.T) {
	a := New(64, 256)

	lines := a.Feed([]byte("one\r\ntwo\r"))
	require.Equal(t, []string{"one"}, texts(lines))

	lines = a.Feed([]byte("\n"))
	assert.Equal(t, []string{"two"}, texts(lines))
}

func TestFeed_EmptyLines(t *testing.T) {
	a := New(64, 256)

	lines := a.Feed([]byte("\n\nx\n"))
	require.Len(t, lines, 3)
	assert.Equal(t, "", string(lines[0].Text))
	assert.Equal(t, "", string(lines[1].Text))
	assert.Equal(t, "x", string(lines[2].Text))
}

func TestFeed_OverlongLineIsTruncatedAndRemainderDropped(t *testing.T) {
	a := New(10, 1024)

	lines := a.Feed([]byte(strings.Repeat("x", 50) + "\nnext\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("x", 10), string(lines[0].Text))
	assert.True(t, lines[0].Truncated)
	assert.Equal(t, "next", string(lines[1].Text))
	assert.False(t, lines[1].Truncated)
}

func TestFeed_OverlongLineWithoutTerminator(t *testing.T) {
	a := New(10, 1024)

	assert.Empty(t, a.Feed([]byte(strings.Repeat("y", 50))))
	assert.Equal(t, 10, a.Pending())

	assert.Empty(t, a.Feed([]byte(strings.Repeat("z", 30))))
	assert.Equal(t, 10, a.Pending())

	lines := a.Feed([]byte("tail\nafter\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Repeat("y", 10), string(lines[0].Text))
	assert.True(t, lines[0].Truncated)
	assert.Equal(t, "after", string(lines[1].Text))
}

func TestFeed_ExactlyMaxLineIsNotTruncated(t *testing.T) {
	a := New(4, 1024)

	lines := a.Feed([]byte("abcd\nabcd\r\n"))
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "abcd", string(l.Text))
		assert.False(t, l.Truncated)
	}
}

func TestFeed_ForcedCutAtBufferCap(t *testing.T) {
	a := New(100, 8)

	lines := a.Feed([]byte(strings.Repeat("a", 20)))
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, strings.Repeat("a", 8), string(l.Text))
		assert.True(t, l.Truncated)
	}
	assert.Equal(t, 4, a.Pending())

	lines = a.Feed([]byte("\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "aaaa", string(lines[0].Text))
}

func TestFeed_BufferCapCutsEvenWhenLineCapIsSmaller(t *testing.T) {
	a := New(4, 8)

	var lines []Line
	for i := 0; i < 5; i++ {
		lines = append(lines, a.Feed([]byte("abcd"))...)
	}
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, "abcd", string(l.Text))
		assert.True(t, l.Truncated)
	}
	assert.Equal(t, 4, a.Pending())
}

func TestFeed_NeverTerminatedStreamKeepsProducingLines(t *testing.T) {
	a := New(DefaultMaxLineBytes, DefaultMaxBufferBytes)
	chunk := bytes.Repeat([]byte("z"), 64*1024)

	var lines []Line
	for i := 0; i < 40; i++ {
		lines = append(lines, a.Feed(chunk)...)
		require.LessOrEqual(t, a.Pending(), DefaultMaxLineBytes)
	}
	require.Len(t, lines, 2)
	assert.Len(t, lines[0].Text, DefaultMaxLineBytes)
	assert.True(t, lines[0].Truncated)
}

func TestFeed_CutBeforeCRLFDoesNotAddBlankLine(t *testing.T) {
	a := New(10, 4)

	lines := a.Feed([]byte("abcd\r\nok\r\n"))
	require.Equal(t, []string{"abcd", "ok"}, texts(lines))
	assert.True(t, lines[0].Truncated)
	assert.False(t, lines[1].Truncated)
}

func TestFeed_CutBeforeCRAcrossChunks(t *testing.T) {
	a := New(10, 4)

	lines := a.Feed([]byte("abcd\r"))
	require.Equal(t, []string{"abcd"}, texts(lines))

	assert.Empty(t, a.Feed([]byte("\n")))
	_, ok := a.Flush()
	assert.False(t, ok)
}

func TestFlush(t *testing.T) {
	a := New(64, 256)

	_, ok := a.Flush()
	assert.False(t, ok, "empty assembler should not flush")

	a.Feed([]byte("done\npartial"))
	line, ok := a.Flush()
	require.True(t, ok)
	assert.Equal(t, "partial", string(line.Text))
	assert.True(t, line.Truncated)
	assert.Equal(t, 0, a.Pending())

	_, ok = a.Flush()
	assert.False(t, ok)
}

func TestFlush_ResidueBeyondLineCap(t *testing.T) {
	a := New(3, 256)
	a.Feed([]byte("abcdef"))

	line, ok := a.Flush()
	require.True(t, ok)
	assert.Equal(t, "abc", string(line.Text))
}

func TestReset_DiscardsPartialLine(t *testing.T) {
	a := New(64, 256)
	a.Feed([]byte("half a li"))
	a.Reset()

	lines := a.Feed([]byte("fresh\n"))
	assert.Equal(t, []string{"fresh"}, texts(lines))
}

func TestFeed_ReturnedLinesDoNotAliasBuffer(t *testing.T) {
	a := New(64, 256)
	lines := a.Feed([]byte("first\n"))
	a.Feed([]byte("XXXXX\n"))
	assert.Equal(t, "first", string(lines[0].Text))
}

func TestFeed_BoundsHoldForArbitraryInput(t *testing.T) {
	limits := []struct{ line, buffer int }{
		{line: 16, buffer: 64},
		{line: 64, buffer: 16},
		{line: 32, buffer: 32},
		{line: 1, buffer: 1},
	}
	rng := rand.New(rand.NewSource(42))

	for _, lim := range limits {
		a := New(lim.line, lim.buffer)
		var fed, got bytes.Buffer
		for i := 0; i < 2000; i++ {
			chunk := make([]byte, rng.Intn(200))
			for j := range chunk {
				if rng.Intn(40) == 0 {
					chunk[j] = '\n'
				} else {
					chunk[j] = byte('a' + rng.Intn(26))
				}
			}
			fed.Write(chunk)
			for _, l := range a.Feed(chunk) {
				require.LessOrEqual(t, len(l.Text), lim.line)
				got.Write(l.Text)
			}
			require.LessOrEqual(t, a.Pending(), lim.buffer)
		}
		assert.LessOrEqual(t, got.Len(), fed.Len())
	}
}
