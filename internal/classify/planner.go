package classify

import (
	"fmt"
	"sort"
	"strings"
)

// Tier names an analysis strategy. The values appear in progress files and
// reports, so they are stable identifiers.
type Tier string

const (
	TierMinorBatch Tier = "minor_batch"
	TierMinor      Tier = "minor"
	TierModerate   Tier = "moderate"
	TierMajor      Tier = "major"
)

// Unit is one planned unit of LLM analysis covering one or more
// consecutive transitions.
type Unit struct {
	// StartSnapshot and EndSnapshot are inclusive indices into the
	// snapshot list.
	StartSnapshot int
	EndSnapshot   int
	// Transitions indexes into the diff list (transition i covers
	// snapshot i to i+1).
	Transitions    []int
	Tier           Tier
	TotalMagnitude float64
	Description    string
	// IsInflectionPoint marks majors whose completion refreshes the
	// project summary.
	IsInflectionPoint bool
}

// PlanUnits groups transitions into analysis units. Consecutive minors are
// batched into one unit (a batch of one collapses to a plain minor),
// moderates and majors stand alone, and majors double as inflection
// points.
func PlanUnits(magnitudes []float64, breakpoints Breakpoints) []Unit {
	var units []Unit
	var batch []int
	batchMagnitude := 0.0

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if len(batch) == 1 {
			idx := batch[0]
			units = append(units, Unit{
				StartSnapshot:  idx,
				EndSnapshot:    idx + 1,
				Transitions:    []int{idx},
				Tier:           TierMinor,
				TotalMagnitude: magnitudes[idx],
				Description:    fmt.Sprintf("Snapshot %d -> %d (minor change)", idx, idx+1),
			})
		} else {
			first, last := batch[0], batch[len(batch)-1]
			units = append(units, Unit{
				StartSnapshot:  first,
				EndSnapshot:    last + 1,
				Transitions:    append([]int(nil), batch...),
				Tier:           TierMinorBatch,
				TotalMagnitude: batchMagnitude,
				Description: fmt.Sprintf("Snapshots %d -> %d (%d minor transitions)",
					first, last+1, len(batch)),
			})
		}
		batch = nil
		batchMagnitude = 0.0
	}

	for i, mag := range magnitudes {
		if mag <= breakpoints.MinorThreshold {
			batch = append(batch, i)
			batchMagnitude += mag
			continue
		}

		flush()

		tier := TierModerate
		desc := fmt.Sprintf("Snapshot %d -> %d (moderate change, magnitude %.4f)", i, i+1, mag)
		inflection := false
		if mag >= breakpoints.MajorThreshold {
			tier = TierMajor
			desc = fmt.Sprintf("Snapshot %d -> %d (MAJOR change, magnitude %.4f)", i, i+1, mag)
			inflection = true
		}
		units = append(units, Unit{
			StartSnapshot:     i,
			EndSnapshot:       i + 1,
			Transitions:       []int{i},
			Tier:              tier,
			TotalMagnitude:    mag,
			Description:       desc,
			IsInflectionPoint: inflection,
		})
	}
	flush()

	return units
}

// Per-tier API call estimates for the plan summary. A major runs a
// multi-turn conversation, estimated at three calls.
const (
	estimatedCallsMajor = 3
	estimatedCallsOther = 1
)

// SummarizePlan renders the human-readable plan overview printed before
// analysis starts.
func SummarizePlan(units []Unit, breakpoints Breakpoints) string {
	var b strings.Builder
	b.WriteString("Analysis Plan Summary\n")
	b.WriteString(strings.Repeat("=", 50))

	stats := breakpoints.Stats
	fmt.Fprintf(&b, "\n\nChange Distribution (%d transitions):\n", stats.Count)
	fmt.Fprintf(&b, "  Method: %s\n", stats.Method)
	if stats.Count > 0 {
		fmt.Fprintf(&b, "  Range:  %.4f - %.4f\n", stats.Min, stats.Max)
		fmt.Fprintf(&b, "  Mean:   %.4f  Median: %.4f\n", stats.Mean, stats.Median)
		fmt.Fprintf(&b, "  StdDev: %.4f\n", stats.StdDev)
	}
	fmt.Fprintf(&b, "\nThresholds:\n")
	fmt.Fprintf(&b, "  Minor:  <= %.4f\n", breakpoints.MinorThreshold)
	fmt.Fprintf(&b, "  Major:  >= %.4f\n", breakpoints.MajorThreshold)

	tierCounts := make(map[Tier]int)
	for _, u := range units {
		tierCounts[u.Tier]++
	}
	tiers := make([]string, 0, len(tierCounts))
	for tier := range tierCounts {
		tiers = append(tiers, string(tier))
	}
	sort.Strings(tiers)

	fmt.Fprintf(&b, "\nAnalysis Units: %d total\n", len(units))
	for _, tier := range tiers {
		fmt.Fprintf(&b, "  %s: %d\n", tier, tierCounts[Tier(tier)])
	}

	inflections := 0
	for _, u := range units {
		if u.IsInflectionPoint {
			inflections++
		}
	}
	if inflections > 0 {
		fmt.Fprintf(&b, "  Inflection points (summary refresh): %d\n", inflections)
	}

	apiCalls := 2 // initial project summary + final overview
	for _, u := range units {
		if u.Tier == TierMajor {
			apiCalls += estimatedCallsMajor
		} else {
			apiCalls += estimatedCallsOther
		}
	}
	fmt.Fprintf(&b, "\nEstimated API calls: %d\n", apiCalls)
	fmt.Fprintf(&b, "  (+ %d summary refreshes at inflection points)\n", inflections)

	fmt.Fprintf(&b, "\nPlanned Units:\n")
	for i, u := range units {
		marker := ""
		if u.IsInflectionPoint {
			marker = " ***"
		}
		fmt.Fprintf(&b, "  %d. %s%s\n", i+1, u.Description, marker)
	}

	return strings.TrimRight(b.String(), "\n")
}
