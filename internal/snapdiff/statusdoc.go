package snapdiff

import (
	"path"
	"strings"
)

// statusDocNames holds basenames recognized as status documents. Lowercase
// for matching.
var statusDocNames = map[string]bool{
	"status.md": true, "changelog.md": true, "todo.md": true, "notes.md": true,
	"readme.md": true, "development.md": true, "devlog.md": true, "history.md": true,
	"claude.md": true, "progress.md": true, "release_notes.md": true,
	"roadmap.md": true, "lessons_learned.md": true,
}

// statusDocPrefixes matches dated or numbered variants of the same families
// (devlog_2025.md, todo-old.txt).
var statusDocPrefixes = []string{"devlog", "changelog", "release_notes", "todo"}

// IsStatusDoc reports whether the file at relPath is a status or planning
// document the project keeps about itself.
func IsStatusDoc(relPath string) bool {
	base := strings.ToLower(path.Base(relPath))
	if statusDocNames[base] {
		return true
	}
	for _, prefix := range statusDocPrefixes {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}

	return false
}
