// Package snapdiff extracts zip snapshots and computes file-level diffs
// between consecutive snapshots: files added, removed, modified, moved and
// unchanged, plus status documents carried in the newer snapshot.
package snapdiff

import "strings"

// FileDiff is a modified file with its unified diff.
type FileDiff struct {
	Path string
	// Text is the unified diff as a single string.
	Text string
	// LineCount is the number of lines in Text, headers included.
	LineCount int
}

// Move records a file whose content moved to a new path unchanged.
type Move struct {
	OldPath string
	NewPath string
}

// Diff is the complete comparison of two snapshots.
type Diff struct {
	Added     []string
	Removed   []string
	Modified  []FileDiff
	Moved     []Move
	Unchanged []string

	// TotalDiffLines sums LineCount over Modified.
	TotalDiffLines int
	// FilesChanged counts added + removed + modified + moved.
	FilesChanged int

	// NewFileListing and OldFileListing hold every non-binary path on each
	// side, sorted.
	NewFileListing []string
	OldFileListing []string

	// TotalLinesInNew is the line total across the newer snapshot's files.
	TotalLinesInNew int

	// StatusDocs maps status-document paths in the newer snapshot to their
	// full content. StatusDocDiffs is the subset of Modified covering them.
	StatusDocs     map[string]string
	StatusDocDiffs []FileDiff
}

// DefaultBinaryExtensions lists file extensions skipped during diffing.
// Matching is case-insensitive on the extension.
var DefaultBinaryExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".ico", ".svg",
	".exe", ".dll", ".so", ".dylib", ".bin",
	".zip", ".gz", ".tar", ".rar", ".7z",
	".pdf", ".doc", ".docx", ".xls", ".xlsx",
	".pyc", ".pyo", ".class", ".o", ".obj",
	".db", ".sqlite", ".sqlite3",
	".mp3", ".mp4", ".wav", ".avi", ".mov",
	".ttf", ".otf", ".woff", ".woff2",
	".ds_store",
	".suo", ".cache", ".resources", ".pdb",
	".nupkg", ".snk",
}

// normalizeExtensions lowercases extensions and guarantees a leading dot.
func normalizeExtensions(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultBinaryExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		e := strings.ToLower(ext)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}

	return set
}
