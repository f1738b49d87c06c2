// Package report assembles the final Markdown history document from
// completed analysis results.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/retrospect/internal/analysis"
	"github.com/Sumatoshi-tech/retrospect/internal/classify"
)

// Params carries everything the report needs.
type Params struct {
	ProjectName    string
	Overview       string
	Results        []analysis.Result
	Units          []classify.Unit
	SnapshotLabels []string
	Breakpoints    classify.Breakpoints
	OutputDir      string
}

// tierOrder fixes the order tiers appear in the statistics section.
var tierOrder = []classify.Tier{classify.TierMajor, classify.TierModerate, classify.TierMinor, classify.TierMinorBatch}

// Generate writes <project>_history.md into the output directory and
// returns its path.
func Generate(p Params) (string, error) {
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	reportPath := filepath.Join(p.OutputDir, p.ProjectName+"_history.md")

	content := Render(p)
	if err := os.WriteFile(reportPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	return reportPath, nil
}

// Render builds the Markdown document.
func Render(p Params) string {
	tierCounts := map[classify.Tier]int{}
	for _, u := range p.Units {
		tierCounts[u.Tier]++
	}

	var lines []string
	push := func(ls ...string) { lines = append(lines, ls...) }

	push(fmt.Sprintf("# Project History: %s", p.ProjectName), "")
	push(fmt.Sprintf("*Generated %s*", time.Now().Format("2006-01-02 15:04")), "")

	push("## Overview", "", p.Overview, "")

	push("## Change Statistics", "")
	push(fmt.Sprintf("- **Total snapshots:** %d", len(p.SnapshotLabels)))
	push(fmt.Sprintf("- **Analysis units:** %d", len(p.Units)))
	for _, tier := range tierOrder {
		if count, ok := tierCounts[tier]; ok {
			push(fmt.Sprintf("  - %s: %d", strings.ReplaceAll(string(tier), "_", " "), count))
		}
	}
	if len(p.SnapshotLabels) > 0 {
		push(fmt.Sprintf("- **Date range:** %s to %s", p.SnapshotLabels[0], p.SnapshotLabels[len(p.SnapshotLabels)-1]))
	}
	push(fmt.Sprintf("- **Breakpoint method:** %s", breakpointMethod(p.Breakpoints)))
	push(fmt.Sprintf("- **Thresholds:** minor <= %.4f, major >= %.4f",
		p.Breakpoints.MinorThreshold, p.Breakpoints.MajorThreshold))
	push("")

	push("## Version History", "")
	for _, result := range p.Results {
		lines = append(lines, renderResult(result)...)
	}

	return strings.Join(lines, "\n")
}

func breakpointMethod(bp classify.Breakpoints) string {
	if bp.Stats.Method == "" {
		return "N/A"
	}

	return bp.Stats.Method
}

func renderResult(result analysis.Result) []string {
	var lines []string
	push := func(ls ...string) { lines = append(lines, ls...) }

	labelRange := fmt.Sprintf("%s -> %s",
		result.SnapshotLabels[0], result.SnapshotLabels[len(result.SnapshotLabels)-1])

	tierMarker := ""
	switch result.Tier {
	case classify.TierMajor:
		tierMarker = " (Major Change)"
	case classify.TierMinorBatch:
		tierMarker = " (Minor Changes)"
	}
	push(fmt.Sprintf("### %s%s", labelRange, tierMarker), "")

	fs := result.FilesSummary
	var parts []string
	if len(fs.Modified) > 0 {
		parts = append(parts, fmt.Sprintf("%d modified", len(fs.Modified)))
	}
	if len(fs.Added) > 0 {
		parts = append(parts, fmt.Sprintf("%d added", len(fs.Added)))
	}
	if len(fs.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", len(fs.Removed)))
	}
	if len(fs.Moved) > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", len(fs.Moved)))
	}
	if len(parts) > 0 {
		push(fmt.Sprintf("**Files changed:** %s", strings.Join(parts, ", ")), "")
	}

	push(result.Narrative, "")

	if len(parts) > 0 {
		push("<details><summary>File details</summary>", "")
		pushFileList := func(header string, paths []string) {
			if len(paths) == 0 {
				return
			}
			push(header)
			for _, f := range paths {
				push("- " + f)
			}
			push("")
		}
		pushFileList("**Modified:**", fs.Modified)
		pushFileList("**Added:**", fs.Added)
		pushFileList("**Removed:**", fs.Removed)
		if len(fs.Moved) > 0 {
			push("**Moved:**")
			for _, mv := range fs.Moved {
				push(fmt.Sprintf("- %s -> %s", mv.From, mv.To))
			}
			push("")
		}
		push("</details>", "")
	}

	push("---", "")

	return lines
}
