package classify

import (
	"math"
	"sort"
)

// Default thresholds used when there are no transitions to learn from.
const (
	defaultMinorThreshold = 0.05
	defaultMajorThreshold = 0.20
)

// Breakpoint detection method names, reported in the plan summary.
const (
	methodDefault        = "default"
	methodFewTransitions = "percentile (few transitions)"
	methodUniform        = "percentile (uniform distribution)"
	methodGapBased       = "gap-based natural breaks"
	methodMidpoint       = "midpoint (2 values)"
)

// Stats describes the magnitude distribution the thresholds came from.
type Stats struct {
	Method string
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
	Q1     float64
	Q3     float64
	// Gap1 and Gap2 are set only for the gap-based method.
	Gap1 float64
	Gap2 float64
}

// Breakpoints split the magnitude scale into minor, moderate and major.
type Breakpoints struct {
	// MinorThreshold: magnitudes at or below it are minor.
	MinorThreshold float64
	// MajorThreshold: magnitudes at or above it are major.
	MajorThreshold float64
	Stats          Stats
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
func round6(x float64) float64 { return math.Round(x*1e6) / 1e6 }

// FindBreakpoints derives adaptive thresholds from the observed magnitude
// distribution. Few transitions or a uniform spread fall back to
// percentile splits; otherwise the two largest gaps between sorted values
// become the boundaries. An empty input gets fixed defaults.
func FindBreakpoints(magnitudes []float64) Breakpoints {
	if len(magnitudes) == 0 {
		return Breakpoints{
			MinorThreshold: defaultMinorThreshold,
			MajorThreshold: defaultMajorThreshold,
			Stats:          Stats{Method: methodDefault},
		}
	}

	n := len(magnitudes)
	sorted := append([]float64(nil), magnitudes...)
	sort.Float64s(sorted)

	mean := 0.0
	for _, m := range sorted {
		mean += m
	}
	mean /= float64(n)

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	variance := 0.0
	for _, m := range sorted {
		variance += (m - mean) * (m - mean)
	}
	variance /= float64(n)
	stdDev := math.Sqrt(variance)

	q1, q3 := sorted[0], sorted[n-1]
	if n >= 4 {
		q1 = sorted[n/4]
		q3 = sorted[3*n/4]
	}

	stats := Stats{
		Count:  n,
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   round4(mean),
		Median: round4(median),
		StdDev: round4(stdDev),
		Q1:     round4(q1),
		Q3:     round4(q3),
	}

	if n < 5 {
		stats.Method = methodFewTransitions
		major := sorted[n-1] * 0.8
		if n >= 4 {
			major = q3
		}

		return Breakpoints{
			MinorThreshold: round6(median),
			MajorThreshold: round6(major),
			Stats:          stats,
		}
	}

	if stdDev < mean*0.3 && mean > 0 {
		stats.Method = methodUniform

		return Breakpoints{
			MinorThreshold: round6(q1),
			MajorThreshold: round6(q3),
			Stats:          stats,
		}
	}

	return gapBasedBreakpoints(sorted, stats)
}

// gapBasedBreakpoints places the two thresholds at the midpoints of the
// two largest gaps between consecutive sorted magnitudes. When the two
// chosen midpoints collapse into one, the single biggest gap sets the
// minor threshold and the major threshold lands halfway up the remaining
// range.
func gapBasedBreakpoints(sorted []float64, stats Stats) Breakpoints {
	type gap struct {
		size  float64
		index int
	}
	gaps := make([]gap, 0, len(sorted)-1)
	for i := 0; i < len(sorted)-1; i++ {
		gaps = append(gaps, gap{size: sorted[i+1] - sorted[i], index: i})
	}
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].size != gaps[j].size {
			return gaps[i].size > gaps[j].size
		}

		return gaps[i].index > gaps[j].index
	})

	var minor, major float64
	if len(gaps) >= 2 {
		lo, hi := gaps[0].index, gaps[1].index
		if lo > hi {
			lo, hi = hi, lo
		}
		minor = (sorted[lo] + sorted[lo+1]) / 2
		major = (sorted[hi] + sorted[hi+1]) / 2

		if minor >= major {
			bigIdx := gaps[0].index
			minor = (sorted[bigIdx] + sorted[bigIdx+1]) / 2
			major = minor + (sorted[len(sorted)-1]-minor)*0.5
		}

		stats.Method = methodGapBased
		stats.Gap1 = round4(gaps[0].size)
		stats.Gap2 = round4(gaps[1].size)
	} else {
		minor = (sorted[0] + sorted[len(sorted)-1]) / 3
		major = 2 * (sorted[0] + sorted[len(sorted)-1]) / 3
		stats.Method = methodMidpoint
	}

	return Breakpoints{
		MinorThreshold: round6(minor),
		MajorThreshold: round6(major),
		Stats:          stats,
	}
}
