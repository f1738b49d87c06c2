package snapdiff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options control a snapshot comparison.
type Options struct {
	// BinaryExtensions replaces DefaultBinaryExtensions when non-empty.
	BinaryExtensions []string
	// MaxDiffLines caps each file's unified diff; 0 means unlimited. A
	// truncated diff ends with a marker naming the number of dropped lines.
	MaxDiffLines int
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// computeFileDiff diffs two versions of one file. It returns nil when the
// versions are identical at line granularity or when either side cannot be
// read.
func computeFileDiff(oldPath, newPath, relPath string, maxLines int) *FileDiff {
	oldText, errOld := readTextFile(oldPath)
	newText, errNew := readTextFile(newPath)
	if errOld != nil || errNew != nil {
		slog.Warn("could not read both sides of a modified file, treating as unchanged",
			"path", relPath)

		return nil
	}

	lines := unifiedDiffLines(oldText, newText, relPath)
	if len(lines) == 0 {
		return nil
	}

	if maxLines > 0 && len(lines) > maxLines {
		truncated := len(lines) - maxLines
		lines = lines[:maxLines]
		lines = append(lines, fmt.Sprintf("\n... (%d more lines truncated)", truncated))
	}

	return &FileDiff{
		Path:      relPath,
		Text:      strings.Join(lines, "\n"),
		LineCount: len(lines),
	}
}

// Compute extracts both snapshots and classifies every non-binary file as
// added, removed, modified, moved or unchanged. Moves are detected by
// content hash: files that disappear on one side and reappear elsewhere
// with identical bytes pair up positionally in path order. Files that
// differ by hash but produce no line diff count as unchanged.
func Compute(oldZip, newZip string, opts Options) (*Diff, error) {
	binaryExts := normalizeExtensions(opts.BinaryExtensions)

	tmpDir, err := os.MkdirTemp("", "retrospect-diff-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	oldDir := filepath.Join(tmpDir, "old")
	newDir := filepath.Join(tmpDir, "new")
	if err := extractZip(oldZip, oldDir); err != nil {
		return nil, err
	}
	if err := extractZip(newZip, newDir); err != nil {
		return nil, err
	}

	oldFiles, err := walkFiles(findRootDir(oldDir), binaryExts)
	if err != nil {
		return nil, err
	}
	newFiles, err := walkFiles(findRootDir(newDir), binaryExts)
	if err != nil {
		return nil, err
	}

	var onlyOld, onlyNew, common []string
	for path := range oldFiles {
		if _, ok := newFiles[path]; ok {
			common = append(common, path)
		} else {
			onlyOld = append(onlyOld, path)
		}
	}
	for path := range newFiles {
		if _, ok := oldFiles[path]; !ok {
			onlyNew = append(onlyNew, path)
		}
	}
	sort.Strings(onlyOld)
	sort.Strings(onlyNew)
	sort.Strings(common)

	oldByHash, err := hashPaths(onlyOld, oldFiles)
	if err != nil {
		return nil, err
	}
	newByHash, err := hashPaths(onlyNew, newFiles)
	if err != nil {
		return nil, err
	}

	moved, movedOld, movedNew := pairMoves(oldByHash, newByHash)

	diff := &Diff{StatusDocs: make(map[string]string)}
	for _, path := range onlyNew {
		if !movedNew[path] {
			diff.Added = append(diff.Added, path)
		}
	}
	for _, path := range onlyOld {
		if !movedOld[path] {
			diff.Removed = append(diff.Removed, path)
		}
	}
	diff.Moved = moved

	for _, path := range common {
		oldHash, err := fileHash(oldFiles[path])
		if err != nil {
			return nil, err
		}
		newHash, err := fileHash(newFiles[path])
		if err != nil {
			return nil, err
		}
		if oldHash == newHash {
			diff.Unchanged = append(diff.Unchanged, path)
			continue
		}
		if fd := computeFileDiff(oldFiles[path], newFiles[path], path, opts.MaxDiffLines); fd != nil {
			diff.Modified = append(diff.Modified, *fd)
		} else {
			diff.Unchanged = append(diff.Unchanged, path)
		}
	}

	for _, fd := range diff.Modified {
		diff.TotalDiffLines += fd.LineCount
	}
	diff.FilesChanged = len(diff.Added) + len(diff.Removed) + len(diff.Modified) + len(diff.Moved)

	for path, abs := range newFiles {
		text, err := readTextFile(abs)
		if err != nil {
			continue
		}
		diff.TotalLinesInNew += countLines(text)
		if IsStatusDoc(path) {
			diff.StatusDocs[path] = text
		}
	}

	for _, fd := range diff.Modified {
		if IsStatusDoc(fd.Path) {
			diff.StatusDocDiffs = append(diff.StatusDocDiffs, fd)
		}
	}

	diff.NewFileListing = sortedKeys(newFiles)
	diff.OldFileListing = sortedKeys(oldFiles)

	return diff, nil
}

func hashPaths(paths []string, files map[string]string) (map[string][]string, error) {
	byHash := make(map[string][]string)
	for _, path := range paths {
		h, err := fileHash(files[path])
		if err != nil {
			return nil, err
		}
		byHash[h] = append(byHash[h], path)
	}

	return byHash, nil
}

// pairMoves matches identical content across the two sides. When a hash
// maps to several paths on both sides the lists pair positionally; the
// leftovers fall through to added or removed.
func pairMoves(oldByHash, newByHash map[string][]string) ([]Move, map[string]bool, map[string]bool) {
	var moved []Move
	movedOld := make(map[string]bool)
	movedNew := make(map[string]bool)

	for h, oldList := range oldByHash {
		newList, ok := newByHash[h]
		if !ok {
			continue
		}
		n := len(oldList)
		if len(newList) < n {
			n = len(newList)
		}
		for i := 0; i < n; i++ {
			moved = append(moved, Move{OldPath: oldList[i], NewPath: newList[i]})
			movedOld[oldList[i]] = true
			movedNew[newList[i]] = true
		}
	}

	sort.Slice(moved, func(i, j int) bool { return moved[i].NewPath < moved[j].NewPath })

	return moved, movedOld, movedNew
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}
