package analysis

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
)

// Prompt size limits for the non-tool-assisted tiers.
const (
	maxDiffLinesPerFile   = 300
	maxTotalDiffForPrompt = 5000
	maxStatusDocDiffLines = 200
	batchListLimit        = 10
)

// truncateDiff caps a diff at maxLines, noting how much was cut.
func truncateDiff(diffText string, maxLines int) string {
	lines := strings.Split(diffText, "\n")
	if len(lines) <= maxLines {
		return diffText
	}

	return strings.Join(lines[:maxLines], "\n") +
		fmt.Sprintf("\n... (%d more lines truncated)", len(lines)-maxLines)
}

// formatDiffForPrompt renders a transition for a single prompt. Status
// document changes go first: the developer's own notes are the best
// signal for why a change happened.
func formatDiffForPrompt(diff *snapdiff.Diff) string {
	var sections []string

	if len(diff.Added) > 0 {
		var b strings.Builder
		b.WriteString("FILES ADDED:")
		for _, p := range diff.Added {
			b.WriteString("\n  + " + p)
		}
		sections = append(sections, b.String())
	}

	if len(diff.Removed) > 0 {
		var b strings.Builder
		b.WriteString("FILES REMOVED:")
		for _, p := range diff.Removed {
			b.WriteString("\n  - " + p)
		}
		sections = append(sections, b.String())
	}

	if len(diff.Moved) > 0 {
		var b strings.Builder
		b.WriteString("FILES MOVED:")
		for _, mv := range diff.Moved {
			b.WriteString(fmt.Sprintf("\n  %s -> %s", mv.OldPath, mv.NewPath))
		}
		sections = append(sections, b.String())
	}

	if len(diff.Modified) > 0 {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("FILES MODIFIED (%d files):\n", len(diff.Modified)))
		totalLines := 0
		for i, fd := range diff.Modified {
			truncated := truncateDiff(fd.Text, maxDiffLinesPerFile)
			linesInThis := strings.Count(truncated, "\n") + 1

			if totalLines+linesInThis > maxTotalDiffForPrompt {
				remaining := len(diff.Modified) - i
				b.WriteString(fmt.Sprintf("\n  ... and %d more modified files (diffs omitted for length)\n", remaining))

				break
			}

			b.WriteString(fmt.Sprintf("\n--- %s (%d lines changed) ---\n", fd.Path, fd.LineCount))
			b.WriteString(truncated + "\n")
			totalLines += linesInThis
		}
		sections = append(sections, b.String())
	}

	if len(diff.StatusDocDiffs) > 0 {
		var b strings.Builder
		b.WriteString("DEVELOPER STATUS DOCUMENT CHANGES:\n")
		b.WriteString("(These documents contain the developer's own notes about what they're working on)\n")
		for _, fd := range diff.StatusDocDiffs {
			b.WriteString(fmt.Sprintf("\n--- %s ---\n", fd.Path))
			b.WriteString(truncateDiff(fd.Text, maxStatusDocDiffLines) + "\n")
		}
		sections = append([]string{b.String()}, sections...)
	}

	return strings.Join(sections, "\n\n")
}

// labelPair names the endpoints of one transition.
type labelPair struct {
	Old string
	New string
}

// formatBatchSummary renders per-transition statistics for a batch of
// minor transitions, without diff bodies.
func formatBatchSummary(diffs []*snapdiff.Diff, labels []labelPair) string {
	sections := make([]string, 0, len(diffs))
	for i, diff := range diffs {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("Transition %d: %s -> %s\n", i+1, labels[i].Old, labels[i].New))
		b.WriteString(fmt.Sprintf("  Files: %d changed ", diff.FilesChanged))
		b.WriteString(fmt.Sprintf("(%d added, %d removed, %d modified, %d moved)\n",
			len(diff.Added), len(diff.Removed), len(diff.Modified), len(diff.Moved)))
		b.WriteString(fmt.Sprintf("  Diff lines: %d\n", diff.TotalDiffLines))

		if len(diff.Modified) > 0 {
			paths := make([]string, 0, batchListLimit)
			for _, fd := range diff.Modified {
				if len(paths) == batchListLimit {
					break
				}
				paths = append(paths, fd.Path)
			}
			b.WriteString("  Modified: " + strings.Join(paths, ", "))
			if len(diff.Modified) > batchListLimit {
				b.WriteString(fmt.Sprintf(" ... and %d more", len(diff.Modified)-batchListLimit))
			}
			b.WriteString("\n")
		}
		b.WriteString(formatPathList("  Added: ", diff.Added))
		b.WriteString(formatPathList("  Removed: ", diff.Removed))

		sections = append(sections, b.String())
	}

	return strings.Join(sections, "\n")
}

func formatPathList(prefix string, paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	shown := paths
	if len(shown) > batchListLimit {
		shown = shown[:batchListLimit]
	}
	out := prefix + strings.Join(shown, ", ")
	if len(paths) > batchListLimit {
		out += fmt.Sprintf(" ... and %d more", len(paths)-batchListLimit)
	}

	return out + "\n"
}
