// Package workspace owns the files the review engine may touch: path
// resolution confined to a project root, content snapshots paired with write
// capabilities, git snapshots before the first applied edit of a round, and
// file listing.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideRoot reports a path that resolves outside the workspace root.
	ErrOutsideRoot = errors.New("path escapes the workspace root")
	// ErrNotADirectory reports a root path that is not a directory.
	ErrNotADirectory = errors.New("workspace root is not a directory")
)

// Root is a validated workspace directory. All file access in this package
// resolves through it so nothing outside the project can be read or written.
type Root struct {
	base string
}

// NewRoot validates path and returns it as a workspace root. The directory
// must exist.
func NewRoot(path string) (Root, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Root{}, errors.New("workspace root is required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return Root{}, fmt.Errorf("resolve workspace root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Root{}, fmt.Errorf("stat workspace root: %w", err)
	}
	if !info.IsDir() {
		return Root{}, fmt.Errorf("%s: %w", abs, ErrNotADirectory)
	}
	return Root{base: abs}, nil
}

// Base returns the absolute root directory.
func (r Root) Base() string { return r.base }

// Resolve joins path onto the root and guarantees the result stays inside it.
// Relative paths are resolved against the root; absolute paths are accepted
// only when they already point under it.
func (r Root) Resolve(path string) (string, error) {
	if r.base == "" {
		return "", errors.New("workspace root is not configured")
	}
	p := strings.TrimSpace(path)
	if p == "" {
		return "", errors.New("path is required")
	}

	if filepath.IsAbs(p) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(r.base, abs)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", fmt.Errorf("%s: %w", p, ErrOutsideRoot)
		}
		return abs, nil
	}

	abs, ok := joinUnderBase(r.base, p)
	if !ok {
		return "", fmt.Errorf("%s: %w", p, ErrOutsideRoot)
	}
	return abs, nil
}

// Rel converts an absolute path back to its root-relative slash form for
// display. Paths outside the root are returned unchanged.
func (r Root) Rel(abs string) string {
	rel, err := filepath.Rel(r.base, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// joinUnderBase resolves p under base and reports whether the result remains
// within it. Symlinks are evaluated where possible so a link cannot smuggle
// the resolution outside the root; paths that do not exist yet fall back to
// lexical cleaning.
func joinUnderBase(base, p string) (abs string, ok bool) {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", false
	}
	evalBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		evalBase = absBase
	}

	candidate := filepath.Join(evalBase, p)
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", false
	}
	evalCandidate, err := filepath.EvalSymlinks(absCandidate)
	if err != nil {
		evalCandidate = absCandidate
	}

	rel, err := filepath.Rel(evalBase, evalCandidate)
	if err != nil {
		return "", false
	}
	if rel == "." {
		return absCandidate, true
	}
	if strings.HasPrefix(rel, "..") {
		return "", false
	}
	return absCandidate, true
}
