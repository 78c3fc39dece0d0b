package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/tomb.v2"

	"github.com/five82/tailbut/internal/gate"
	"github.com/five82/tailbut/internal/logtail"
)

// Start selects where following begins on the first open.
type Start int

const (
	// StartEnd skips existing content, like tail -f.
	StartEnd Start = iota
	// StartBeginning reads the file from offset 0.
	StartBeginning
)

// DefaultMaxTransientErrors is how many consecutive polls may find the file
// unavailable before the source gives up.
const DefaultMaxTransientErrors = 25

// FileOptions configure a FileSource.
type FileOptions struct {
	Path  string
	Gate  gate.Gate
	Start Start
	// Backlog replays the last N lines before following; it overrides Start.
	Backlog int
	// ChunkBytes bounds the bytes returned per poll.
	ChunkBytes int
	// MaxTransientErrors bounds consecutive unavailable polls. Negative
	// values use the default.
	MaxTransientErrors int
	// Watch enables fsnotify wake-ups between ticks.
	Watch  bool
	Logger *log.Entry
}

// FileSource follows a single file by path.
type FileSource struct {
	opts   FileOptions
	logger *log.Entry

	file   *os.File
	ident  os.FileInfo // identity of the open file, for rotation checks
	offset int64
	size   int64 // last known size
	opened bool  // the first open has happened
	fails  int
	buf    []byte

	watcher *fsnotify.Watcher
	ready   chan struct{}
	tomb    tomb.Tomb
}

// NewFileSource prepares a source for opts.Path. The file is opened lazily on
// the first poll so a missing file counts against the transient budget.
func NewFileSource(opts FileOptions) (*FileSource, error) {
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = DefaultChunkBytes
	}
	if opts.MaxTransientErrors < 0 {
		opts.MaxTransientErrors = DefaultMaxTransientErrors
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	s := &FileSource{
		opts:   opts,
		logger: logger.WithField("path", opts.Path),
		buf:    make([]byte, opts.ChunkBytes),
	}
	if opts.Watch {
		if err := s.watch(); err != nil {
			s.logger.WithError(err).Debug("file watch unavailable, relying on polling")
		}
	}
	return s, nil
}

// Ready signals filesystem activity on the followed path. It is nil when
// watching is disabled or unavailable.
func (s *FileSource) Ready() <-chan struct{} {
	return s.ready
}

// Poll reads whatever was appended since the last poll.
func (s *FileSource) Poll(_ context.Context) (Result, error) {
	if s.file == nil {
		first := !s.opened
		if err := s.open(); err != nil {
			if first && errors.Is(err, gate.ErrRefused) {
				return Result{}, fmt.Errorf("%w: %w", ErrFatalIO, err)
			}
			return s.unavailable(err)
		}
		if !first {
			data, more, err := s.read()
			if err != nil {
				return Result{}, err
			}
			return Result{Kind: Rotated, Data: data, More: more}, nil
		}
	}

	info, err := s.file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("%w: stat %s: %w", ErrFatalIO, s.opts.Path, err)
	}

	kind := Data
	if size := info.Size(); size < s.size || size < s.offset {
		s.logger.WithFields(log.Fields{"size": size, "offset": s.offset}).Info("file truncated, reading from start")
		s.offset = 0
		kind = Truncated
	}
	s.size = info.Size()

	data, more, err := s.read()
	if err != nil {
		return Result{}, err
	}
	if kind == Truncated || len(data) > 0 {
		s.fails = 0
		return Result{Kind: kind, Data: data, More: more}, nil
	}

	return s.checkRotation()
}

// Close releases the file handle and stops the watcher.
func (s *FileSource) Close() error {
	if s.watcher != nil {
		s.tomb.Kill(nil)
		_ = s.watcher.Close()
		_ = s.tomb.Wait()
		s.watcher = nil
	}
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// checkRotation runs once the open handle is drained. If the path now names
// another file the old handle has nothing left to give, so switch over.
func (s *FileSource) checkRotation() (Result, error) {
	current, err := os.Stat(s.opts.Path)
	if err != nil {
		return s.unavailable(err)
	}
	if os.SameFile(s.ident, current) {
		s.fails = 0
		return Result{Kind: NoData}, nil
	}

	s.logger.Info("file replaced, reopening from start")
	_ = s.file.Close()
	s.file = nil
	if err := s.open(); err != nil {
		return s.unavailable(err)
	}
	data, more, err := s.read()
	if err != nil {
		return Result{}, err
	}
	return Result{Kind: Rotated, Data: data, More: more}, nil
}

func (s *FileSource) open() error {
	if err := s.opts.Gate.Check(s.opts.Path); err != nil {
		return err
	}
	file, err := os.Open(s.opts.Path)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}

	offset := int64(0)
	if !s.opened {
		offset, err = s.startOffset(file, info.Size())
		if err != nil {
			_ = file.Close()
			return err
		}
	}

	s.file = file
	s.ident = info
	s.offset = offset
	s.size = info.Size()
	s.opened = true
	s.fails = 0
	s.logger.WithField("offset", offset).Debug("file opened")
	return nil
}

func (s *FileSource) startOffset(file *os.File, size int64) (int64, error) {
	switch {
	case s.opts.Backlog > 0:
		offset, err := logtail.Offset(file, size, s.opts.Backlog)
		if err != nil {
			return 0, err
		}
		return offset, nil
	case s.opts.Start == StartBeginning:
		return 0, nil
	default:
		return size, nil
	}
}

// read returns up to ChunkBytes from the current offset, bounded by the last
// known size so bytes appended mid-read wait for the next poll.
func (s *FileSource) read() ([]byte, bool, error) {
	remaining := s.size - s.offset
	if remaining <= 0 {
		return nil, false, nil
	}
	want := int64(len(s.buf))
	if remaining < want {
		want = remaining
	}
	n, err := s.file.ReadAt(s.buf[:want], s.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, fmt.Errorf("%w: read %s: %w", ErrFatalIO, s.opts.Path, err)
	}
	s.offset += int64(n)
	if n == 0 {
		return nil, false, nil
	}
	data := make([]byte, n)
	copy(data, s.buf[:n])
	return data, s.offset < s.size, nil
}

// unavailable counts a transient failure and escalates once the budget is spent.
func (s *FileSource) unavailable(err error) (Result, error) {
	if !isTransient(err) {
		return Result{}, fmt.Errorf("%w: %s: %w", ErrFatalIO, s.opts.Path, err)
	}
	s.fails++
	if s.fails > s.opts.MaxTransientErrors {
		return Result{}, fmt.Errorf("%w: %s unavailable for %d polls: %w", ErrFatalIO, s.opts.Path, s.fails, err)
	}
	entry := s.logger.WithError(err).WithField("attempt", s.fails)
	if errors.Is(err, gate.ErrRefused) {
		entry.Warn("reopen blocked")
	} else {
		entry.Debug("waiting for file")
	}
	return Result{Kind: NoData}, nil
}

func isTransient(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, gate.ErrRefused)
}

func (s *FileSource) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.opts.Path)); err != nil {
		_ = w.Close()
		return err
	}
	s.watcher = w
	s.ready = make(chan struct{}, 1)
	target := filepath.Clean(s.opts.Path)

	s.tomb.Go(func() error {
		for {
			select {
			case <-s.tomb.Dying():
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(ev.Name) == target {
					wake(s.ready)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				s.logger.WithError(err).Debug("file watch error")
			}
		}
	})
	return nil
}
