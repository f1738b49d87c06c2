package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/retrospect/internal/analysis"
	"github.com/Sumatoshi-tech/retrospect/internal/classify"
)

func sampleParams() Params {
	return Params{
		ProjectName: "demo",
		Overview:    "The project started as a script and grew into a tool.",
		Results: []analysis.Result{
			{
				UnitIndex:      0,
				Tier:           classify.TierMinorBatch,
				Narrative:      "Small fixes across several files.",
				SnapshotLabels: []string{"v1", "v3"},
				FilesSummary: analysis.FilesSummary{
					Modified: []string{"main.py"},
					Added:    []string{"util.py"},
				},
			},
			{
				UnitIndex:      2,
				Tier:           classify.TierMajor,
				Narrative:      "A full rewrite of the core.",
				SnapshotLabels: []string{"v3", "v4"},
				FilesSummary: analysis.FilesSummary{
					Removed: []string{"legacy.py"},
					Moved:   []analysis.MoveEntry{{From: "a.py", To: "b.py"}},
				},
			},
		},
		Units: []classify.Unit{
			{Tier: classify.TierMinorBatch},
			{Tier: classify.TierMajor},
		},
		SnapshotLabels: []string{"v1", "v2", "v3", "v4"},
		Breakpoints: classify.Breakpoints{
			MinorThreshold: 0.05,
			MajorThreshold: 0.20,
			Stats:          classify.Stats{Method: "gap-based natural breaks"},
		},
	}
}

func TestRender_Sections(t *testing.T) {
	t.Parallel()

	content := Render(sampleParams())

	assert.Contains(t, content, "# Project History: demo")
	assert.Contains(t, content, "## Overview")
	assert.Contains(t, content, "The project started as a script")
	assert.Contains(t, content, "## Change Statistics")
	assert.Contains(t, content, "- **Total snapshots:** 4")
	assert.Contains(t, content, "- **Analysis units:** 2")
	assert.Contains(t, content, "  - major: 1")
	assert.Contains(t, content, "  - minor batch: 1")
	assert.Contains(t, content, "- **Date range:** v1 to v4")
	assert.Contains(t, content, "- **Breakpoint method:** gap-based natural breaks")
	assert.Contains(t, content, "- **Thresholds:** minor <= 0.0500, major >= 0.2000")
	assert.Contains(t, content, "## Version History")
}

func TestRender_VersionEntries(t *testing.T) {
	t.Parallel()

	content := Render(sampleParams())

	assert.Contains(t, content, "### v1 -> v3 (Minor Changes)")
	assert.Contains(t, content, "### v3 -> v4 (Major Change)")
	assert.Contains(t, content, "**Files changed:** 1 modified, 1 added")
	assert.Contains(t, content, "**Files changed:** 1 removed, 1 moved")
	assert.Contains(t, content, "<details><summary>File details</summary>")
	assert.Contains(t, content, "- a.py -> b.py")
	assert.Contains(t, content, "A full rewrite of the core.")

	// Entries are separated by horizontal rules.
	assert.Equal(t, 2, strings.Count(content, "\n---\n"))
}

func TestRender_ModerateHasNoTierMarker(t *testing.T) {
	t.Parallel()

	p := sampleParams()
	p.Results = []analysis.Result{{
		Tier:           classify.TierModerate,
		Narrative:      "n",
		SnapshotLabels: []string{"v1", "v2"},
	}}

	content := Render(p)
	assert.Contains(t, content, "### v1 -> v2\n")
	assert.NotContains(t, content, "v1 -> v2 (")
}

func TestRender_EmptyMethodFallsBack(t *testing.T) {
	t.Parallel()

	p := sampleParams()
	p.Breakpoints.Stats.Method = ""

	assert.Contains(t, Render(p), "- **Breakpoint method:** N/A")
}

func TestGenerate_WritesFile(t *testing.T) {
	t.Parallel()

	p := sampleParams()
	p.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := Generate(p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(p.OutputDir, "demo_history.md"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Project History: demo")
}
