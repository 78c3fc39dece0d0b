package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/five82/tailbut/internal/app"
	"github.com/five82/tailbut/internal/config"
	"github.com/five82/tailbut/internal/gate"
	"github.com/five82/tailbut/internal/highlight"
	"github.com/five82/tailbut/internal/state"
	"github.com/five82/tailbut/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "tailbut: %v\n", err)
		return exitCode(err)
	}
	return 0
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrInvalid), errors.Is(err, gate.ErrRefused):
		return 2
	default:
		return 1
	}
}

type flags struct {
	configPath   string
	lineSeconds  int
	idleSeconds  int
	regex        string
	ignoreCase   bool
	color        string
	colorMode    string
	highlight    string
	pollMillis   int
	maxBuffer    int
	maxLine      int
	maxTransient int
	start        string
	lines        int
	noFollow     bool
	allowedRoot  string
	noWatch      bool
	logLevel     string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f flags
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "tailbut [PATH]",
		Short: "Follow a log and print at most one line per interval",
		Long: `tailbut follows a file (or standard input) like tail -f, but prints at most
one ordinary line per --line-seconds window. Lines matching --regex are always
printed, and highlighted when color is enabled.`,
		Version:       version.Current(),
		Args:          maxOnePath,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Path = args[0]
			}
			if err := applyFlags(cmd.Flags(), &f, &cfg); err != nil {
				return err
			}

			logger, err := newLogger(stderr, cfg.LogLevel)
			if err != nil {
				return err
			}

			stats := &state.Store{}
			stopDump := dumpStatsOnSignal(stats, logger)
			defer stopDump()

			err = app.Run(cmd.Context(), app.Options{
				Config:   cfg,
				Stdin:    stdin,
				Stdout:   stdout,
				Terminal: isTerminal(stdout),
				Stats:    stats,
				Logger:   logger,
			})
			logStats(logger, stats.Snapshot())
			return err
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", config.ErrInvalid, err)
	})

	fs := cmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	fs.IntVarP(&f.lineSeconds, "line-seconds", "n", def.LineSeconds, "print at most one ordinary line per this many seconds")
	fs.IntVarP(&f.idleSeconds, "idle-seconds", "i", def.IdleSeconds, "print a notice after this many seconds without input")
	fs.StringVarP(&f.regex, "regex", "r", def.Regex, "lines matching this RE2 pattern bypass the throttle")
	fs.BoolVarP(&f.ignoreCase, "ignore-case", "I", def.IgnoreCase, "match --regex case-insensitively")
	fs.StringVarP(&f.color, "color", "c", def.Color, "highlight color: "+strings.Join(highlight.Colors(), ", "))
	fs.StringVar(&f.colorMode, "color-mode", def.ColorMode, "when to use color: auto, always, never")
	fs.StringVar(&f.highlight, "highlight", def.Highlight, "what to color in matching lines: line, match")
	fs.IntVar(&f.pollMillis, "poll-millis", def.PollMillis, "poll interval in milliseconds")
	fs.IntVar(&f.maxBuffer, "max-buffer-bytes", def.MaxBufferBytes, "cap on buffered bytes of an unfinished line")
	fs.IntVar(&f.maxLine, "max-line-bytes", def.MaxLineBytes, "longer lines are cut and marked [truncated]")
	fs.IntVar(&f.maxTransient, "max-transient-errors", def.MaxTransientErrors, "consecutive polls the file may be missing before giving up")
	fs.StringVar(&f.start, "start", def.Start, "where to begin reading a file: end, start")
	fs.IntVar(&f.lines, "lines", def.Lines, "replay the last N lines of the file before following")
	fs.BoolVar(&f.noFollow, "no-follow-symlinks", def.NoFollowSymlinks, "refuse to follow a path that is a symlink")
	fs.StringVar(&f.allowedRoot, "allowed-root", def.AllowedRoot, "refuse paths that resolve outside this directory")
	fs.BoolVar(&f.noWatch, "no-watch", !def.Watch, "disable filesystem notifications and rely on polling")
	fs.StringVar(&f.logLevel, "log-level", def.LogLevel, "diagnostic level: debug, info, warn, error")

	return cmd
}

func maxOnePath(_ *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("%w: expected at most one path, got %d", config.ErrInvalid, len(args))
	}
	return nil
}

// applyFlags overlays the flags the user set on top of cfg.
func applyFlags(fs *pflag.FlagSet, f *flags, cfg *config.Config) error {
	if fs.Changed("line-seconds") {
		cfg.LineSeconds = f.lineSeconds
	}
	if fs.Changed("idle-seconds") {
		if f.idleSeconds < 1 {
			return fmt.Errorf("%w: idle-seconds must be at least 1, got %d", config.ErrInvalid, f.idleSeconds)
		}
		cfg.IdleSeconds = f.idleSeconds
	}
	if fs.Changed("regex") {
		cfg.Regex = f.regex
	}
	if fs.Changed("ignore-case") {
		cfg.IgnoreCase = f.ignoreCase
	}
	if fs.Changed("color") {
		cfg.Color = f.color
	}
	if fs.Changed("color-mode") {
		cfg.ColorMode = f.colorMode
	}
	if fs.Changed("highlight") {
		cfg.Highlight = f.highlight
	}
	if fs.Changed("poll-millis") {
		cfg.PollMillis = f.pollMillis
	}
	if fs.Changed("max-buffer-bytes") {
		cfg.MaxBufferBytes = f.maxBuffer
	}
	if fs.Changed("max-line-bytes") {
		cfg.MaxLineBytes = f.maxLine
	}
	if fs.Changed("max-transient-errors") {
		cfg.MaxTransientErrors = f.maxTransient
	}
	if fs.Changed("start") {
		cfg.Start = f.start
	}
	if fs.Changed("lines") {
		cfg.Lines = f.lines
	}
	if fs.Changed("no-follow-symlinks") {
		cfg.NoFollowSymlinks = f.noFollow
	}
	if fs.Changed("allowed-root") {
		root, err := config.ExpandPath(f.allowedRoot)
		if err != nil {
			return fmt.Errorf("%w: allowed-root: %w", config.ErrInvalid, err)
		}
		cfg.AllowedRoot = root
	}
	if fs.Changed("no-watch") {
		cfg.Watch = !f.noWatch
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return nil
}

func newLogger(w io.Writer, level string) (*log.Entry, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log-level: %w", config.ErrInvalid, err)
	}
	logger := log.New()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return log.NewEntry(logger), nil
}

// logStats reports the counters at info level.
func logStats(logger *log.Entry, snap state.Snapshot) {
	logger.WithFields(log.Fields{
		"observed":   snap.LinesObserved,
		"emitted":    snap.LinesEmitted,
		"urgent":     snap.LinesUrgent,
		"dropped":    snap.LinesDropped,
		"truncated":  snap.LinesTruncated,
		"idle":       snap.IdleNotices,
		"truncates":  snap.Truncations,
		"rotations":  snap.Rotations,
		"bytes_read": snap.BytesRead,
	}).Info("follow stats")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && highlight.IsTerminal(f)
}

