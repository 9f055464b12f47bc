package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	filepathx "github.com/yargevad/filepathx"

	"codepair/internal/utils"
)

// DefaultIgnorePatterns are directory names every listing skips. A trailing
// slash marks a directory-style pattern.
var DefaultIgnorePatterns = []string{
	".git/", ".idea/", ".vscode/", ".cache/", ".venv/",
	"node_modules/", "__pycache__/", "venv/", "env/",
	"dist/", "build/", "target/", "vendor/", "bin/", "obj/",
	"tmp/", "temp/", "logs/",
}

// ignoreFileName is an optional per-workspace ignore list, one pattern per
// line, # comments allowed.
const ignoreFileName = ".codepairignore"

var errWalkLimit = errors.New("listing limit reached")

// Entry is one file produced by Glob, newest first.
type Entry struct {
	Path    string // absolute
	Rel     string // root-relative, slash form
	ModTime time.Time
}

// LoadIgnores returns the effective ignore patterns for root: the defaults
// plus whatever the workspace's ignore file adds.
func LoadIgnores(root Root) []string {
	patterns := append([]string{}, DefaultIgnorePatterns...)
	extra := utils.ReadPatternLines(filepath.Join(root.Base(), ignoreFileName))
	return append(patterns, extra...)
}

// Glob expands pattern (supports ** via filepathx) under dir, which must
// resolve inside root. Directories are dropped, results are sorted by
// modification time descending and capped at limit; the second return value
// reports truncation.
func Glob(root Root, dir, pattern string, limit int) ([]Entry, bool, error) {
	searchPath := root.Base()
	if strings.TrimSpace(dir) != "" {
		abs, err := root.Resolve(dir)
		if err != nil {
			return nil, false, err
		}
		searchPath = abs
	}
	info, err := os.Stat(searchPath)
	if err != nil {
		return nil, false, err
	}
	if !info.IsDir() {
		return nil, false, errors.New("search path is not a directory")
	}

	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(searchPath, pattern)
	}
	matches, err := filepathx.Glob(absPattern)
	if err != nil {
		return nil, false, err
	}

	entries := make([]Entry, 0, len(matches))
	truncated := false
	for _, p := range matches {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		entries = append(entries, Entry{Path: p, Rel: root.Rel(p), ModTime: st.ModTime()})
		if limit > 0 && len(entries) >= limit {
			truncated = true
			break
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ModTime.After(entries[j].ModTime) })
	return entries, truncated, nil
}

// Walk collects files under dir (resolved inside root) honoring ignore
// patterns, capped at limit. Paths come back slash-separated relative to dir;
// the second return value reports truncation.
func Walk(root Root, dir string, ignores []string, limit int) ([]string, bool, error) {
	searchPath := root.Base()
	if strings.TrimSpace(dir) != "" {
		abs, err := root.Resolve(dir)
		if err != nil {
			return nil, false, err
		}
		searchPath = abs
	}
	skip := newIgnoreSet(ignores)

	var files []string
	err := filepath.WalkDir(searchPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == searchPath {
			return nil
		}
		rel, _ := filepath.Rel(searchPath, p)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skip.dir(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if skip.file(rel) {
			return nil
		}
		files = append(files, rel)
		if limit > 0 && len(files) >= limit {
			return errWalkLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errWalkLimit) {
		return nil, false, err
	}
	return files, errors.Is(err, errWalkLimit), nil
}

// ignoreSet indexes ignore patterns for per-segment checks. Directory-style
// patterns ("x/", "x/**") match any path segment; bare names match both a
// segment and a file's base name. Glob metacharacters are not supported in
// ignore lists and such patterns are dropped.
type ignoreSet struct {
	dirNames  map[string]bool
	fileNames map[string]bool
}

func newIgnoreSet(patterns []string) ignoreSet {
	set := ignoreSet{dirNames: make(map[string]bool), fileNames: make(map[string]bool)}
	for _, raw := range patterns {
		p := strings.TrimSpace(raw)
		switch {
		case p == "":
		case strings.HasSuffix(p, "/**"):
			set.dirNames[strings.TrimSuffix(p, "/**")] = true
		case strings.HasSuffix(p, "/"):
			set.dirNames[strings.TrimSuffix(p, "/")] = true
		case strings.ContainsAny(p, "*?["):
		default:
			set.dirNames[p] = true
			set.fileNames[p] = true
		}
	}
	return set
}

func (s ignoreSet) dir(relDir string) bool {
	for _, seg := range strings.Split(relDir, "/") {
		if s.dirNames[seg] {
			return true
		}
	}
	return false
}

func (s ignoreSet) file(relFile string) bool {
	if dir := path.Dir(relFile); dir != "." && s.dir(dir) {
		return true
	}
	return s.fileNames[path.Base(relFile)]
}
