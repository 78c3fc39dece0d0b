// Package highlight renders lines for the terminal.
//
// # Overview
//
// Render is a pure pass-through for normal lines. Urgent lines (those that
// matched the bypass pattern) are wrapped in the configured ANSI foreground
// color, either as a whole line or, in match mode, only around the matched
// spans.
//
// # Palette
//
// The palette is fixed: red, green, yellow, blue, magenta and cyan, mapped to
// the basic ANSI colors 31 through 36 so the output looks the same on any
// terminal that understands color at all. Styles come from a lipgloss
// renderer pinned to the termenv ANSI profile with tab conversion disabled,
// so line content is never altered.
//
// # Color Detection
//
// Whether color is used at all is decided once at startup by Enabled:
//
//   - never / always: explicit override
//   - NO_COLOR set: off
//   - CLICOLOR_FORCE set to anything but "0": on
//   - CLICOLOR=0 or TERM=dumb: off
//   - otherwise: on only when stdout is a terminal
//
// # Malformed Input
//
// Lines are arbitrary bytes. Invalid UTF-8 sequences are replaced with
// U+FFFD before rendering; rendering never fails.
package highlight
