package highlight

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Color is a palette entry.
type Color string

const (
	Red     Color = "red"
	Green   Color = "green"
	Yellow  Color = "yellow"
	Blue    Color = "blue"
	Magenta Color = "magenta"
	Cyan    Color = "cyan"
)

// DefaultColor is used for urgent lines when none is configured.
const DefaultColor = Yellow

// ANSI color indexes; rendered as SGR 30+index.
var palette = map[Color]string{
	Red:     "1",
	Green:   "2",
	Yellow:  "3",
	Blue:    "4",
	Magenta: "5",
	Cyan:    "6",
}

// ParseColor validates a palette name.
func ParseColor(name string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(name)))
	if c == "" {
		return DefaultColor, nil
	}
	if _, ok := palette[c]; !ok {
		return "", fmt.Errorf("unknown color %q (want one of %s)", name, strings.Join(Colors(), ", "))
	}
	return c, nil
}

// Colors lists the palette names in sorted order.
func Colors() []string {
	names := make([]string, 0, len(palette))
	for c := range palette {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// Mode selects what part of an urgent line is colored.
type Mode string

const (
	// ModeLine colors the whole line.
	ModeLine Mode = "line"
	// ModeMatch colors only the spans the pattern matched.
	ModeMatch Mode = "match"
)

// ParseMode validates a highlight mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return ModeLine, nil
	case ModeLine, ModeMatch:
		return m, nil
	default:
		return "", fmt.Errorf("unknown highlight mode %q (want line or match)", name)
	}
}

// Options configure a Highlighter.
type Options struct {
	Color   Color
	Mode    Mode
	Enabled bool
	// Pattern is required for ModeMatch; without it the whole line is colored.
	Pattern *regexp.Regexp
}

// Highlighter renders lines. It holds no per-line state.
type Highlighter struct {
	enabled bool
	mode    Mode
	pattern *regexp.Regexp
	style   lipgloss.Style
}

// New builds a Highlighter. An unknown color falls back to DefaultColor.
func New(opts Options) *Highlighter {
	code, ok := palette[opts.Color]
	if !ok {
		code = palette[DefaultColor]
	}
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI)

	return &Highlighter{
		enabled: opts.Enabled,
		mode:    opts.Mode,
		pattern: opts.Pattern,
		style:   r.NewStyle().Foreground(lipgloss.Color(code)).TabWidth(lipgloss.NoTabConversion),
	}
}

// Render returns the display text for a line.
func (h *Highlighter) Render(text []byte, urgent bool) string {
	line := Sanitize(text)
	if !urgent || !h.enabled {
		return line
	}
	if h.mode == ModeMatch && h.pattern != nil {
		return h.renderMatches(line)
	}
	return h.style.Render(line)
}

func (h *Highlighter) renderMatches(line string) string {
	spans := h.pattern.FindAllStringIndex(line, -1)
	if len(spans) == 0 {
		return line
	}
	var b strings.Builder
	b.Grow(len(line) + len(spans)*10)
	last := 0
	for _, span := range spans {
		if span[0] == span[1] {
			continue
		}
		b.WriteString(line[last:span[0]])
		b.WriteString(h.style.Render(line[span[0]:span[1]]))
		last = span[1]
	}
	b.WriteString(line[last:])
	return b.String()
}

// Sanitize converts bytes to a string, replacing invalid UTF-8 with U+FFFD.
func Sanitize(text []byte) string {
	return strings.ToValidUTF8(string(text), "\uFFFD")
}
