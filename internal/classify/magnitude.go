// Package classify turns raw snapshot diffs into an analysis plan: a
// normalized change magnitude per transition, adaptive thresholds over the
// magnitude distribution, and an ordered list of tiered analysis units.
package classify

import "github.com/Sumatoshi-tech/retrospect/internal/snapdiff"

// Magnitude weights. Structural changes weigh more than modified lines
// because they indicate reorganization.
const (
	diffRatioWeight    = 0.4
	structuralWeight   = 0.35
	modificationWeight = 0.25
)

// Magnitude computes a normalized change magnitude for one snapshot
// transition. Values are normalized against project size so small and
// large projects are comparable. Typical ranges: below 0.01 trivial,
// 0.01 to 0.05 minor, 0.05 to 0.20 moderate, above 0.20 major.
func Magnitude(d *snapdiff.Diff) float64 {
	totalLines := d.TotalLinesInNew
	if totalLines < 1 {
		totalLines = 1
	}
	totalFiles := len(d.NewFileListing)
	if totalFiles < 1 {
		totalFiles = 1
	}

	diffRatio := float64(d.TotalDiffLines) / float64(totalLines)
	structural := len(d.Added) + len(d.Removed) + len(d.Moved)
	structuralRatio := float64(structural) / float64(totalFiles)
	modificationBreadth := float64(len(d.Modified)) / float64(totalFiles)

	return diffRatioWeight*diffRatio + structuralWeight*structuralRatio + modificationWeight*modificationBreadth
}
