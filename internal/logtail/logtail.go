package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

const scanChunk = 64 * 1024

// Offset returns the byte offset at which the last maxLines lines of r begin,
// reading at most size bytes. maxLines <= 0 returns size.
func Offset(r io.Reader, size int64, maxLines int) (int64, error) {
	if maxLines <= 0 || size <= 0 {
		return max(size, 0), nil
	}

	ring := make([]int64, maxLines)
	ring[0] = 0
	count := 1
	idx := 1 % maxLines

	reader := bufio.NewReaderSize(io.LimitReader(r, size), scanChunk)
	buf := make([]byte, scanChunk)
	var pos int64
	for {
		n, err := reader.Read(buf)
		chunk := buf[:n]
		off := 0
		for {
			i := bytes.IndexByte(chunk[off:], '\n')
			if i < 0 {
				break
			}
			start := pos + int64(off+i) + 1
			if start < size {
				ring[idx] = start
				idx = (idx + 1) % maxLines
				count++
			}
			off += i + 1
		}
		pos += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("scan log: %w", err)
		}
	}

	if count < maxLines {
		return 0, nil
	}
	return ring[idx], nil
}
