package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestWalkHonorsIgnores(t *testing.T) {
	dir := t.TempDir()
	seedTree(t, dir, map[string]string{
		"src/a.go":               "a",
		"src/b.go":               "b",
		"node_modules/x/y.js":    "y",
		"dist/bundle.js":         "z",
		"docs/guide.md":          "g",
		".git/config":            "c",
		"src/nested/c_test.go":   "c",
		"vendor/lib/generated.go": "v",
	})
	root, err := NewRoot(dir)
	require.NoError(t, err)

	files, truncated, err := Walk(root, "", LoadIgnores(root), 100)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.ElementsMatch(t, []string{
		"src/a.go", "src/b.go", "docs/guide.md", "src/nested/c_test.go",
	}, files)
}

func TestWalkIgnoreFilePatterns(t *testing.T) {
	dir := t.TempDir()
	seedTree(t, dir, map[string]string{
		".codepairignore": "# generated output\nsnapshots/\nsecret.txt\n",
		"snapshots/old.go": "o",
		"secret.txt":       "s",
		"keep.go":          "k",
	})
	root, err := NewRoot(dir)
	require.NoError(t, err)

	files, _, err := Walk(root, "", LoadIgnores(root), 100)
	require.NoError(t, err)
	assert.Contains(t, files, "keep.go")
	assert.NotContains(t, files, "snapshots/old.go")
	assert.NotContains(t, files, "secret.txt")
}

func TestWalkTruncatesAtLimit(t *testing.T) {
	dir := t.TempDir()
	seedTree(t, dir, map[string]string{
		"a.txt": "1", "b.txt": "2", "c.txt": "3", "d.txt": "4",
	})
	root, err := NewRoot(dir)
	require.NoError(t, err)

	files, truncated, err := Walk(root, "", nil, 2)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.True(t, truncated)
}

func TestGlobSortsByModTime(t *testing.T) {
	dir := t.TempDir()
	seedTree(t, dir, map[string]string{
		"src/old.go":        "o",
		"src/new.go":        "n",
		"src/deep/newer.go": "d",
		"src/readme.md":     "m",
	})
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "old.go"), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "new.go"), base.Add(10*time.Minute), base.Add(10*time.Minute)))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "src", "deep", "newer.go"), base.Add(20*time.Minute), base.Add(20*time.Minute)))

	root, err := NewRoot(dir)
	require.NoError(t, err)

	entries, truncated, err := Glob(root, "", "src/**/*.go", 100)
	require.NoError(t, err)
	assert.False(t, truncated)

	var rels []string
	for _, e := range entries {
		rels = append(rels, e.Rel)
	}
	assert.Equal(t, []string{"src/deep/newer.go", "src/new.go", "src/old.go"}, rels)
}

func TestGlobRefusesEscapingDir(t *testing.T) {
	dir := t.TempDir()
	root, err := NewRoot(dir)
	require.NoError(t, err)

	_, _, err = Glob(root, "../elsewhere", "*.go", 10)
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
