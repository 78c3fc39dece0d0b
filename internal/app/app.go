package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/five82/tailbut/internal/assembler"
	"github.com/five82/tailbut/internal/config"
	"github.com/five82/tailbut/internal/gate"
	"github.com/five82/tailbut/internal/highlight"
	"github.com/five82/tailbut/internal/schedule"
	"github.com/five82/tailbut/internal/source"
	"github.com/five82/tailbut/internal/state"
)

// Options configure a tailbut run.
type Options struct {
	Config config.Config
	// Stdin is read when Config.Path is empty.
	Stdin  io.Reader
	Stdout io.Writer
	// Terminal reports whether Stdout is a terminal, for --color-mode auto.
	Terminal bool
	// LookupEnv reads the color environment; nil uses os.LookupEnv.
	LookupEnv func(string) (string, bool)
	Stats     *state.Store
	Clock     clockwork.Clock
	Logger    *log.Entry
}

// Run follows the configured input until it ends, fails, or ctx is
// cancelled. Configuration problems wrap config.ErrInvalid, safety refusals
// wrap gate.ErrRefused and read failures wrap source.ErrFatalIO.
func Run(ctx context.Context, opts Options) error {
	cfg := opts.Config
	pattern, err := cfg.Prepare()
	if err != nil {
		return err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}

	// Prepare already checked these names.
	color, _ := highlight.ParseColor(cfg.Color)
	mode, _ := highlight.ParseMode(cfg.Highlight)
	colorMode, _ := highlight.ParseColorMode(cfg.ColorMode)

	src, err := openSource(cfg, opts.Stdin, logger)
	if err != nil {
		return err
	}
	defer src.Close()

	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	engine := NewEngine(EngineOptions{
		Source:    src,
		Assembler: assembler.New(cfg.MaxLineBytes, cfg.MaxBufferBytes),
		Scheduler: schedule.New(schedule.Options{
			LinePeriod: cfg.LinePeriod(),
			IdlePeriod: cfg.IdlePeriod(),
			Pattern:    pattern,
		}, clock),
		Highlighter: highlight.New(highlight.Options{
			Color:   color,
			Mode:    mode,
			Enabled: highlight.Enabled(colorMode, opts.LookupEnv, opts.Terminal),
			Pattern: pattern,
		}),
		Out:          stdout,
		Stats:        opts.Stats,
		Clock:        clock,
		PollInterval: cfg.PollInterval(),
		Logger:       logger,
	})
	return engine.Run(ctx)
}

func openSource(cfg config.Config, stdin io.Reader, logger *log.Entry) (source.Source, error) {
	if cfg.Path == "" {
		if stdin == nil {
			stdin = os.Stdin
		}
		logger.Debug("following standard input")
		return source.NewReaderSource(stdin, source.DefaultChunkBytes), nil
	}

	g, err := gate.New(cfg.NoFollowSymlinks, cfg.AllowedRoot)
	if err != nil {
		return nil, err
	}
	// A missing file is waited for; anything else the gate refuses is final.
	if err := g.Check(cfg.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		if errors.Is(err, gate.ErrRefused) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", source.ErrFatalIO, err)
	}

	start := source.StartEnd
	if cfg.Start == config.StartBeginning {
		start = source.StartBeginning
	}
	return source.NewFileSource(source.FileOptions{
		Path:               cfg.Path,
		Gate:               g,
		Start:              start,
		Backlog:            cfg.Lines,
		MaxTransientErrors: cfg.MaxTransientErrors,
		Watch:              cfg.Watch,
		Logger:             logger,
	})
}
