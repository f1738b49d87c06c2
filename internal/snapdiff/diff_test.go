package snapdiff

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeZip creates a zip archive at dir/name with the given entries.
func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entryName, content := range entries {
		entry, err := w.Create(entryName)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return path
}

func TestCompute_Classification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{
		"main.py":   "print('hi')\n",
		"gone.py":   "obsolete\n",
		"stable.py": "same\n",
		"util.py":   "helpers\n",
	})
	newZip := writeZip(t, dir, "new.zip", map[string]string{
		"main.py":       "print('hi')\nprint('bye')\n",
		"fresh.py":      "brand new\n",
		"stable.py":     "same\n",
		"lib/helper.py": "helpers\n",
	})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh.py"}, diff.Added)
	assert.Equal(t, []string{"gone.py"}, diff.Removed)
	assert.Equal(t, []string{"stable.py"}, diff.Unchanged)
	require.Len(t, diff.Moved, 1)
	assert.Equal(t, Move{OldPath: "util.py", NewPath: "lib/helper.py"}, diff.Moved[0])
	require.Len(t, diff.Modified, 1)
	assert.Equal(t, "main.py", diff.Modified[0].Path)
	assert.Equal(t, 4, diff.FilesChanged)
	assert.Equal(t, diff.Modified[0].LineCount, diff.TotalDiffLines)
	assert.Equal(t, []string{"fresh.py", "lib/helper.py", "main.py", "stable.py"}, diff.NewFileListing)
}

func TestCompute_UnifiedDiffShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{"main.py": "hello\n"})
	newZip := writeZip(t, dir, "new.zip", map[string]string{"main.py": "hello\nworld\n"})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)
	require.Len(t, diff.Modified, 1)

	lines := strings.Split(diff.Modified[0].Text, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "--- a/main.py", lines[0])
	assert.Equal(t, "+++ b/main.py", lines[1])
	assert.Equal(t, "@@ -1 +1,2 @@", lines[2])
	assert.Equal(t, " hello", lines[3])
	assert.Equal(t, "+world", lines[4])
	assert.Equal(t, 5, diff.Modified[0].LineCount)
}

func TestCompute_WrapperDirectoryStripped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{
		"Proj-main/src/app.py": "v1\n",
	})
	newZip := writeZip(t, dir, "new.zip", map[string]string{
		"src/app.py": "v1\n",
	})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)

	// Identical content at identical stripped paths: nothing changed.
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Removed)
	assert.Equal(t, []string{"src/app.py"}, diff.Unchanged)
}

func TestCompute_BinaryFilesSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{
		"app.py":   "code\n",
		"logo.png": "\x89PNG old",
	})
	newZip := writeZip(t, dir, "new.zip", map[string]string{
		"app.py":   "code\n",
		"logo.png": "\x89PNG new",
		"data.DB":  "binary",
	})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)

	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Modified)
	assert.Equal(t, []string{"app.py"}, diff.NewFileListing)
}

func TestCompute_MaxDiffLinesTruncates(t *testing.T) {
	t.Parallel()

	var oldLines, newLines strings.Builder
	for i := 0; i < 50; i++ {
		oldLines.WriteString("old line\n")
		newLines.WriteString("new line\n")
	}

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{"f.txt": oldLines.String()})
	newZip := writeZip(t, dir, "new.zip", map[string]string{"f.txt": newLines.String()})

	diff, err := Compute(oldZip, newZip, Options{MaxDiffLines: 10})
	require.NoError(t, err)
	require.Len(t, diff.Modified, 1)

	fd := diff.Modified[0]
	assert.Equal(t, 11, fd.LineCount)
	assert.Contains(t, fd.Text, "more lines truncated)")
}

func TestCompute_StatusDocs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{
		"app.py":  "code\n",
		"TODO.md": "- ship it\n",
	})
	newZip := writeZip(t, dir, "new.zip", map[string]string{
		"app.py":  "code\n",
		"TODO.md": "- ship it\n- test it\n",
	})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)

	assert.Equal(t, "- ship it\n- test it\n", diff.StatusDocs["TODO.md"])
	require.Len(t, diff.StatusDocDiffs, 1)
	assert.Equal(t, "TODO.md", diff.StatusDocDiffs[0].Path)
}

func TestCompute_TotalLinesInNew(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldZip := writeZip(t, dir, "old.zip", map[string]string{"a.txt": "1\n"})
	newZip := writeZip(t, dir, "new.zip", map[string]string{
		"a.txt": "1\n2\n3\n",
		"b.txt": "1\n2\n",
	})

	diff, err := Compute(oldZip, newZip, Options{})
	require.NoError(t, err)
	assert.Equal(t, 5, diff.TotalLinesInNew)
}

func TestIsStatusDoc(t *testing.T) {
	t.Parallel()

	assert.True(t, IsStatusDoc("README.md"))
	assert.True(t, IsStatusDoc("docs/CHANGELOG.md"))
	assert.True(t, IsStatusDoc("devlog_2025_06.txt"))
	assert.True(t, IsStatusDoc("todo-old.md"))
	assert.False(t, IsStatusDoc("main.py"))
	assert.False(t, IsStatusDoc("docs/design.md"))
}

func TestReadSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := writeZip(t, dir, "snap.zip", map[string]string{
		"wrapper/main.py": "print('hi')\n",
		"wrapper/img.png": "\x89PNG",
	})

	listing, contents, err := ReadSnapshot(zipPath, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.py"}, listing)
	assert.Equal(t, "print('hi')\n", contents["main.py"])
}

func TestReadTextFile_Latin1Fallback(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "latin1.txt")
	// 0xE9 is "é" in Latin-1 and invalid as a standalone UTF-8 byte.
	require.NoError(t, os.WriteFile(path, []byte{'c', 'a', 'f', 0xE9, '\n'}, 0o644))

	text, err := readTextFile(path)
	require.NoError(t, err)
	assert.Equal(t, "café\n", text)
}
