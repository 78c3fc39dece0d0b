// Package config loads tailbut settings.
//
// # Resolution Order
//
//  1. Built-in defaults (Default)
//  2. The TOML file at --config, or $XDG_CONFIG_HOME/tailbut/config.toml,
//     or ~/.config/tailbut/config.toml
//  3. Command-line flags the user actually set
//
// A missing config file is not an error. Fields absent from the file keep
// their defaults.
//
// # Example File
//
//	line_seconds = 5
//	idle_seconds = 60
//	regex = "ERROR|FATAL"
//	ignore_case = true
//	color = "red"
//	highlight = "match"
//	max_line_bytes = 65536
//	log_level = "info"
//
// # Validation
//
// Validate reports the first problem it finds, wrapped in ErrInvalid so the
// caller can map it to exit status 2:
//
//	if err := cfg.Validate(); errors.Is(err, config.ErrInvalid) { ... }
//
// Warnings covers combinations that run but are likely mistakes, such as a
// line cap larger than the pending buffer.
package config
