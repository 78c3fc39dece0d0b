package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/tailbut/internal/highlight"
)

// ErrInvalid marks configuration that cannot be run.
var ErrInvalid = errors.New("invalid configuration")

// Config holds every tunable of a tailbut run.
type Config struct {
	// Path is the file to follow; empty means standard input.
	Path string

	LineSeconds int
	// IdleSeconds of zero means unset: no idle notices. An explicit zero
	// from a flag or the config file is rejected.
	IdleSeconds int
	Regex       string
	IgnoreCase  bool

	Color     string
	ColorMode string
	Highlight string

	PollMillis         int
	MaxBufferBytes     int
	MaxLineBytes       int
	MaxTransientErrors int

	Start string
	Lines int

	NoFollowSymlinks bool
	AllowedRoot      string
	Watch            bool

	LogLevel string
}

const (
	StartEnd       = "end"
	StartBeginning = "start"
)

const (
	defaultLineSeconds        = 5
	defaultPollMillis         = 200
	defaultMaxBufferBytes     = 1 << 20
	defaultMaxLineBytes       = 64 << 10
	defaultMaxTransientErrors = 25
	defaultLogLevel           = "warn"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LineSeconds:        defaultLineSeconds,
		Color:              string(highlight.DefaultColor),
		ColorMode:          string(highlight.ColorAuto),
		Highlight:          string(highlight.ModeLine),
		PollMillis:         defaultPollMillis,
		MaxBufferBytes:     defaultMaxBufferBytes,
		MaxLineBytes:       defaultMaxLineBytes,
		MaxTransientErrors: defaultMaxTransientErrors,
		Start:              StartEnd,
		Watch:              true,
		LogLevel:           defaultLogLevel,
	}
}

// DefaultPath returns the config file location under the XDG config dir.
func DefaultPath() string {
	if dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, "tailbut", "config.toml")
	}
	return "~/.config/tailbut/config.toml"
}

// Load reads the config file at path over the defaults. A missing file is not
// an error.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		LineSeconds        *int    `toml:"line_seconds"`
		IdleSeconds        *int    `toml:"idle_seconds"`
		Regex              *string `toml:"regex"`
		IgnoreCase         *bool   `toml:"ignore_case"`
		Color              *string `toml:"color"`
		ColorMode          *string `toml:"color_mode"`
		Highlight          *string `toml:"highlight"`
		PollMillis         *int    `toml:"poll_millis"`
		MaxBufferBytes     *int    `toml:"max_buffer_bytes"`
		MaxLineBytes       *int    `toml:"max_line_bytes"`
		MaxTransientErrors *int    `toml:"max_transient_errors"`
		Start              *string `toml:"start"`
		Lines              *int    `toml:"lines"`
		NoFollowSymlinks   *bool   `toml:"no_follow_symlinks"`
		AllowedRoot        *string `toml:"allowed_root"`
		Watch              *bool   `toml:"watch"`
		LogLevel           *string `toml:"log_level"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if raw.IdleSeconds != nil && *raw.IdleSeconds < 1 {
		return Config{}, invalid("idle_seconds must be at least 1 when set, got %d", *raw.IdleSeconds)
	}

	setInt(&cfg.LineSeconds, raw.LineSeconds)
	setInt(&cfg.IdleSeconds, raw.IdleSeconds)
	setString(&cfg.Regex, raw.Regex)
	setBool(&cfg.IgnoreCase, raw.IgnoreCase)
	setString(&cfg.Color, raw.Color)
	setString(&cfg.ColorMode, raw.ColorMode)
	setString(&cfg.Highlight, raw.Highlight)
	setInt(&cfg.PollMillis, raw.PollMillis)
	setInt(&cfg.MaxBufferBytes, raw.MaxBufferBytes)
	setInt(&cfg.MaxLineBytes, raw.MaxLineBytes)
	setInt(&cfg.MaxTransientErrors, raw.MaxTransientErrors)
	setString(&cfg.Start, raw.Start)
	setInt(&cfg.Lines, raw.Lines)
	setBool(&cfg.NoFollowSymlinks, raw.NoFollowSymlinks)
	setString(&cfg.AllowedRoot, raw.AllowedRoot)
	setBool(&cfg.Watch, raw.Watch)
	setString(&cfg.LogLevel, raw.LogLevel)

	if cfg.AllowedRoot != "" {
		cfg.AllowedRoot = mustExpand(cfg.AllowedRoot)
	}

	return cfg, nil
}

// Validate checks bounds and enum values. Every failure wraps ErrInvalid.
func (c Config) Validate() error {
	_, err := c.Prepare()
	return err
}

// Prepare validates c and returns the compiled bypass pattern, which is nil
// when no regex is set.
func (c Config) Prepare() (*regexp.Regexp, error) {
	if c.LineSeconds < 1 {
		return nil, invalid("line-seconds must be at least 1, got %d", c.LineSeconds)
	}
	if c.IdleSeconds < 0 {
		return nil, invalid("idle-seconds must be at least 1 when set, got %d", c.IdleSeconds)
	}
	if c.PollMillis < 1 {
		return nil, invalid("poll-millis must be positive, got %d", c.PollMillis)
	}
	if c.MaxBufferBytes < 1 {
		return nil, invalid("max-buffer-bytes must be positive, got %d", c.MaxBufferBytes)
	}
	if c.MaxLineBytes < 1 {
		return nil, invalid("max-line-bytes must be positive, got %d", c.MaxLineBytes)
	}
	if c.MaxTransientErrors < 0 {
		return nil, invalid("max-transient-errors must not be negative, got %d", c.MaxTransientErrors)
	}
	if c.Lines < 0 {
		return nil, invalid("lines must not be negative, got %d", c.Lines)
	}
	if c.IgnoreCase && c.Regex == "" {
		return nil, invalid("ignore-case requires a regex")
	}
	pattern, err := c.Pattern()
	if err != nil {
		return nil, err
	}
	if _, err := highlight.ParseColor(c.Color); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := highlight.ParseColorMode(c.ColorMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if _, err := highlight.ParseMode(c.Highlight); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Start {
	case StartEnd, StartBeginning:
	default:
		return nil, invalid("start must be %q or %q, got %q", StartEnd, StartBeginning, c.Start)
	}
	return pattern, nil
}

// Warnings lists settings that are accepted but probably not intended.
func (c Config) Warnings() []string {
	var warnings []string
	if c.MaxLineBytes > c.MaxBufferBytes {
		warnings = append(warnings, fmt.Sprintf(
			"max-line-bytes (%d) exceeds max-buffer-bytes (%d); lines are cut at %d bytes",
			c.MaxLineBytes, c.MaxBufferBytes, c.MaxBufferBytes))
	}
	if c.Lines > 0 && c.Path != "" && c.Start == StartBeginning {
		warnings = append(warnings, "lines is ignored with start=start")
	}
	return warnings
}

// Pattern compiles the bypass regex. It returns nil when none is set.
func (c Config) Pattern() (*regexp.Regexp, error) {
	if c.Regex == "" {
		return nil, nil
	}
	expr := c.Regex
	if c.IgnoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: regex: %w", ErrInvalid, err)
	}
	return re, nil
}

func (c Config) LinePeriod() time.Duration {
	return time.Duration(c.LineSeconds) * time.Second
}

func (c Config) IdlePeriod() time.Duration {
	return time.Duration(c.IdleSeconds) * time.Second
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollMillis) * time.Millisecond
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath())
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ and makes path absolute.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
