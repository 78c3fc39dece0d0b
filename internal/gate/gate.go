// Package gate decides whether a path may be followed at all.
//
// Two independent checks are available: refusing paths that are symlinks,
// and requiring the resolved path to live under an allowed root directory.
// A refusal wraps ErrRefused. Any other error (for example the path not
// existing yet) is returned as-is so callers can decide to wait and retry.
package gate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrRefused marks a path rejected by the gate.
var ErrRefused = errors.New("path refused")

// Gate holds the path-safety policy. The zero value allows everything.
type Gate struct {
	NoFollowSymlinks bool
	// AllowedRoot is canonical (absolute, symlinks resolved) or empty.
	AllowedRoot string
}

// New canonicalizes allowedRoot and returns the gate. An allowed root that
// cannot be resolved is itself a refusal.
func New(noFollowSymlinks bool, allowedRoot string) (Gate, error) {
	g := Gate{NoFollowSymlinks: noFollowSymlinks}
	if strings.TrimSpace(allowedRoot) == "" {
		return g, nil
	}
	root, err := canonical(allowedRoot)
	if err != nil {
		return Gate{}, fmt.Errorf("%w: invalid allowed root %q: %v", ErrRefused, allowedRoot, err)
	}
	g.AllowedRoot = root
	return g, nil
}

// Check applies the policy to path.
func (g Gate) Check(path string) error {
	if g.NoFollowSymlinks {
		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s is a symlink and symlinks are not followed", ErrRefused, path)
		}
	}

	if g.AllowedRoot != "" {
		target, err := canonical(path)
		if err != nil {
			return err
		}
		if !within(g.AllowedRoot, target) {
			return fmt.Errorf("%w: %s is outside allowed root %s", ErrRefused, target, g.AllowedRoot)
		}
	}
	return nil
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
