package highlight

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ColorMode is the user's color preference.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates a color mode name.
func ParseColorMode(name string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("unknown color mode %q (want auto, always or never)", name)
	}
}

// Enabled decides whether to emit color. lookup has the shape of os.LookupEnv.
func Enabled(mode ColorMode, lookup func(string) (string, bool), tty bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if _, ok := lookup("NO_COLOR"); ok {
		return false
	}
	if force, ok := lookup("CLICOLOR_FORCE"); ok && force != "0" {
		return true
	}
	if v, ok := lookup("CLICOLOR"); ok && v == "0" {
		return false
	}
	if term, ok := lookup("TERM"); ok && term == "dumb" {
		return false
	}
	return tty
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
