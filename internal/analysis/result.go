// Package analysis turns snapshot transitions into narrative text using
// tiered model calls: batched one-liners for runs of minor changes, full
// diff prompts for moderate ones, and tool-assisted exploration for
// major transitions where truncation would lose the story.
package analysis

import (
	"github.com/Sumatoshi-tech/retrospect/internal/classify"
	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
)

// Result is the outcome of analyzing one unit. It is stored as raw JSON
// in the progress file, so the field tags are the persistence format.
type Result struct {
	UnitIndex      int           `json:"unit_index"`
	Tier           classify.Tier `json:"tier"`
	Narrative      string        `json:"narrative"`
	SnapshotLabels []string      `json:"snapshot_labels"`
	FilesSummary   FilesSummary  `json:"files_summary"`
}

// FilesSummary lists the files touched by a unit.
type FilesSummary struct {
	Added    []string    `json:"added"`
	Removed  []string    `json:"removed"`
	Modified []string    `json:"modified"`
	Moved    []MoveEntry `json:"moved"`
}

// MoveEntry is one renamed file.
type MoveEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func buildFilesSummary(diff *snapdiff.Diff) FilesSummary {
	summary := FilesSummary{
		Added:    append([]string{}, diff.Added...),
		Removed:  append([]string{}, diff.Removed...),
		Modified: []string{},
		Moved:    []MoveEntry{},
	}
	for _, fd := range diff.Modified {
		summary.Modified = append(summary.Modified, fd.Path)
	}
	for _, mv := range diff.Moved {
		summary.Moved = append(summary.Moved, MoveEntry{From: mv.OldPath, To: mv.NewPath})
	}

	return summary
}

// mergeFilesSummaries combines summaries from a batch of transitions,
// deduplicating paths while preserving first-seen order.
func mergeFilesSummaries(summaries []FilesSummary) FilesSummary {
	merged := FilesSummary{
		Added:    []string{},
		Removed:  []string{},
		Modified: []string{},
		Moved:    []MoveEntry{},
	}
	seenAdded := map[string]bool{}
	seenRemoved := map[string]bool{}
	seenModified := map[string]bool{}

	for _, s := range summaries {
		for _, f := range s.Added {
			if !seenAdded[f] {
				merged.Added = append(merged.Added, f)
				seenAdded[f] = true
			}
		}
		for _, f := range s.Removed {
			if !seenRemoved[f] {
				merged.Removed = append(merged.Removed, f)
				seenRemoved[f] = true
			}
		}
		for _, f := range s.Modified {
			if !seenModified[f] {
				merged.Modified = append(merged.Modified, f)
				seenModified[f] = true
			}
		}
		merged.Moved = append(merged.Moved, s.Moved...)
	}

	return merged
}
