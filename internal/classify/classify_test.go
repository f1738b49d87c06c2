package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
)

func TestMagnitude_Weights(t *testing.T) {
	t.Parallel()

	d := &snapdiff.Diff{
		Added:           []string{"a.py"},
		Removed:         []string{"b.py"},
		Modified:        []snapdiff.FileDiff{{Path: "c.py", LineCount: 10}},
		TotalDiffLines:  10,
		TotalLinesInNew: 100,
		NewFileListing:  []string{"a.py", "c.py", "d.py", "e.py"},
	}

	// 0.4*(10/100) + 0.35*(2/4) + 0.25*(1/4)
	assert.InDelta(t, 0.04+0.175+0.0625, Magnitude(d), 1e-9)
}

func TestMagnitude_EmptyProjectDoesNotDivideByZero(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, Magnitude(&snapdiff.Diff{}))
}

func TestFindBreakpoints_EmptyUsesDefaults(t *testing.T) {
	t.Parallel()

	bp := FindBreakpoints(nil)
	assert.Equal(t, 0.05, bp.MinorThreshold)
	assert.Equal(t, 0.20, bp.MajorThreshold)
	assert.Equal(t, "default", bp.Stats.Method)
	assert.Equal(t, 0, bp.Stats.Count)
}

func TestFindBreakpoints_FewTransitions(t *testing.T) {
	t.Parallel()

	bp := FindBreakpoints([]float64{0.01, 0.02, 0.5})
	assert.Equal(t, "percentile (few transitions)", bp.Stats.Method)
	// Median of three values.
	assert.InDelta(t, 0.02, bp.MinorThreshold, 1e-9)
	// Fewer than four values: 80% of the maximum.
	assert.InDelta(t, 0.4, bp.MajorThreshold, 1e-9)
}

func TestFindBreakpoints_UniformDistribution(t *testing.T) {
	t.Parallel()

	// Tight cluster around 0.1: stddev well below 30% of the mean.
	mags := []float64{0.09, 0.095, 0.1, 0.105, 0.11, 0.1, 0.098, 0.102}
	bp := FindBreakpoints(mags)

	assert.Equal(t, "percentile (uniform distribution)", bp.Stats.Method)
	assert.InDelta(t, bp.Stats.Q1, bp.MinorThreshold, 1e-4)
	assert.InDelta(t, bp.Stats.Q3, bp.MajorThreshold, 1e-4)
}

func TestFindBreakpoints_GapBased(t *testing.T) {
	t.Parallel()

	// Three clear clusters: two biggest gaps sit between them.
	mags := []float64{0.01, 0.012, 0.011, 0.1, 0.11, 0.5, 0.52}
	bp := FindBreakpoints(mags)

	require.Equal(t, "gap-based natural breaks", bp.Stats.Method)
	assert.Greater(t, bp.MinorThreshold, 0.012)
	assert.Less(t, bp.MinorThreshold, 0.1)
	assert.Greater(t, bp.MajorThreshold, 0.11)
	assert.Less(t, bp.MajorThreshold, 0.5)
	assert.Greater(t, bp.Stats.Gap1, 0.0)
}

func TestPlanUnits_BatchesConsecutiveMinors(t *testing.T) {
	t.Parallel()

	bp := Breakpoints{MinorThreshold: 0.05, MajorThreshold: 0.20}
	mags := []float64{0.01, 0.02, 0.01, 0.1, 0.01, 0.3}

	units := PlanUnits(mags, bp)
	require.Len(t, units, 4)

	// Transitions 0..2 batch together.
	assert.Equal(t, TierMinorBatch, units[0].Tier)
	assert.Equal(t, []int{0, 1, 2}, units[0].Transitions)
	assert.Equal(t, 0, units[0].StartSnapshot)
	assert.Equal(t, 3, units[0].EndSnapshot)
	assert.InDelta(t, 0.04, units[0].TotalMagnitude, 1e-9)

	assert.Equal(t, TierModerate, units[1].Tier)
	assert.False(t, units[1].IsInflectionPoint)

	// A solitary minor between non-minors stays a plain minor.
	assert.Equal(t, TierMinor, units[2].Tier)
	assert.Equal(t, []int{4}, units[2].Transitions)

	assert.Equal(t, TierMajor, units[3].Tier)
	assert.True(t, units[3].IsInflectionPoint)
}

func TestPlanUnits_TrailingBatchFlushed(t *testing.T) {
	t.Parallel()

	bp := Breakpoints{MinorThreshold: 0.05, MajorThreshold: 0.20}
	units := PlanUnits([]float64{0.3, 0.01, 0.02}, bp)

	require.Len(t, units, 2)
	assert.Equal(t, TierMajor, units[0].Tier)
	assert.Equal(t, TierMinorBatch, units[1].Tier)
	assert.Equal(t, []int{1, 2}, units[1].Transitions)
}

func TestPlanUnits_SingleTransition(t *testing.T) {
	t.Parallel()

	bp := Breakpoints{MinorThreshold: 0.05, MajorThreshold: 0.20}
	units := PlanUnits([]float64{0.02}, bp)

	require.Len(t, units, 1)
	assert.Equal(t, TierMinor, units[0].Tier)
}

func TestPlanUnits_AllMinorsOneBatch(t *testing.T) {
	t.Parallel()

	bp := Breakpoints{MinorThreshold: 0.05, MajorThreshold: 0.20}
	units := PlanUnits([]float64{0.01, 0.02, 0.03, 0.01}, bp)

	require.Len(t, units, 1)
	assert.Equal(t, TierMinorBatch, units[0].Tier)
	assert.Len(t, units[0].Transitions, 4)
}

func TestSummarizePlan(t *testing.T) {
	t.Parallel()

	mags := []float64{0.01, 0.02, 0.3}
	bp := FindBreakpoints(mags)
	units := PlanUnits(mags, Breakpoints{MinorThreshold: 0.05, MajorThreshold: 0.20, Stats: bp.Stats})

	text := SummarizePlan(units, bp)
	assert.Contains(t, text, "Analysis Plan Summary")
	assert.Contains(t, text, "Analysis Units: 2 total")
	assert.Contains(t, text, "minor_batch: 1")
	assert.Contains(t, text, "major: 1")
	assert.Contains(t, text, "Inflection points (summary refresh): 1")
	// 1 batch + 3 for the major + summary + overview.
	assert.Contains(t, text, "Estimated API calls: 6")
	assert.Contains(t, text, "***")
}
