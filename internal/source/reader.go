package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gopkg.in/tomb.v2"
)

// readerQueue bounds how many chunks the background reader may get ahead.
const readerQueue = 16

// ReaderSource adapts a blocking reader, typically stdin. A background
// goroutine performs the blocking reads; Poll only collects what is ready.
type ReaderSource struct {
	chunkBytes int
	chunks     chan []byte
	ready      chan struct{}
	tomb       tomb.Tomb
	ended      bool
}

// NewReaderSource starts reading r in the background.
func NewReaderSource(r io.Reader, chunkBytes int) *ReaderSource {
	if chunkBytes <= 0 {
		chunkBytes = DefaultChunkBytes
	}
	s := &ReaderSource{
		chunkBytes: chunkBytes,
		chunks:     make(chan []byte, readerQueue),
		ready:      make(chan struct{}, 1),
	}
	s.tomb.Go(func() error {
		return s.readLoop(r)
	})
	return s
}

func (s *ReaderSource) readLoop(r io.Reader) error {
	defer close(s.chunks)
	defer wake(s.ready)
	for {
		buf := make([]byte, s.chunkBytes)
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.chunks <- buf[:n]:
				wake(s.ready)
			case <-s.tomb.Dying():
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Ready fires when the background reader queued data or finished.
func (s *ReaderSource) Ready() <-chan struct{} {
	return s.ready
}

// Poll returns the chunks queued so far, up to chunkBytes worth, without
// blocking. Once the reader has finished and the queue is empty it returns
// EOF, or ErrFatalIO if the reader failed.
func (s *ReaderSource) Poll(_ context.Context) (Result, error) {
	if s.ended {
		return Result{Kind: EOF}, nil
	}

	var data []byte
collect:
	for len(data) < s.chunkBytes {
		select {
		case chunk, ok := <-s.chunks:
			if !ok {
				if len(data) > 0 {
					return Result{Kind: Data, Data: data}, nil
				}
				return s.finish()
			}
			data = append(data, chunk...)
		default:
			break collect
		}
	}
	if len(data) == 0 {
		return Result{Kind: NoData}, nil
	}
	return Result{Kind: Data, Data: data, More: len(s.chunks) > 0}, nil
}

func (s *ReaderSource) finish() (Result, error) {
	s.ended = true
	if err := s.tomb.Wait(); err != nil {
		return Result{}, fmt.Errorf("%w: read input: %w", ErrFatalIO, err)
	}
	return Result{Kind: EOF}, nil
}

// Close stops handing out data. A read already blocked in the underlying
// reader is not interrupted; it ends with the process.
func (s *ReaderSource) Close() error {
	s.tomb.Kill(nil)
	return nil
}
