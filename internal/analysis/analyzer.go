package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/retrospect/internal/classify"
	"github.com/Sumatoshi-tech/retrospect/internal/llm"
	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
)

// Completion budgets per call type.
const (
	summaryMaxTokens     = 4000
	minorBatchMaxTokens  = 2000
	minorSingleMaxTokens = 1500
	moderateMaxTokens    = 3000
	majorMaxTokens       = 4000
	overviewMaxTokens    = 4000
)

// maxSummarySourceChars bounds how much source code goes into a project
// summary prompt, roughly 25K tokens.
const maxSummarySourceChars = 100000

// oneshotOverviewLimit is the unit count up to which the overview is a
// single call; above it the model browses narratives through tools.
const oneshotOverviewLimit = 10

// Fallback chain task names, used as keys under retry.tasks in the
// configuration.
const (
	TaskSummary  = "summary"
	TaskUnit     = "unit_analysis"
	TaskOverview = "overview"
)

// Analyzer runs the tiered analysis calls for one project.
type Analyzer struct {
	engine      *llm.Engine
	projectName string
	// taskFallbacks resolves a task name to its fallback model chain.
	// Nil keeps the engine default for every task.
	taskFallbacks func(task string) []string
}

// NewAnalyzer builds an Analyzer over an engine.
func NewAnalyzer(engine *llm.Engine, projectName string, taskFallbacks func(task string) []string) *Analyzer {
	return &Analyzer{engine: engine, projectName: projectName, taskFallbacks: taskFallbacks}
}

func (a *Analyzer) fallbacksFor(task string) []string {
	if a.taskFallbacks == nil {
		return nil
	}

	return a.taskFallbacks(task)
}

// queryText issues one text query with the writing style and system
// framing as leading cached context.
func (a *Analyzer) queryText(ctx context.Context, task string, cacheParts []string, query string, maxTokens int) (string, error) {
	blocks := append([]string{systemMessage, writingStyle}, cacheParts...)

	return a.engine.QueryText(ctx, llm.QueryOpts{
		ContextBlocks:  blocks,
		Query:          query,
		MaxTokens:      maxTokens,
		FallbackModels: a.fallbacksFor(task),
	})
}

// buildSourceContext concatenates file contents up to the size cap,
// noting how many files were left out.
func buildSourceContext(fileContents map[string]string) string {
	paths := make([]string, 0, len(fileContents))
	for p := range fileContents {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	total := 0
	included := 0
	for _, path := range paths {
		content := fileContents[path]
		if total+len(content) > maxSummarySourceChars {
			remaining := len(fileContents) - included
			b.WriteString(fmt.Sprintf("\n... (%d more files not shown for length)", remaining))

			break
		}
		b.WriteString(fmt.Sprintf("\n=== %s ===\n%s", path, content))
		total += len(content)
		included++
	}

	return b.String()
}

func formatStatusDocs(header string, statusDocs map[string]string) string {
	paths := make([]string, 0, len(statusDocs))
	for p := range statusDocs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString(header)
	for _, path := range paths {
		b.WriteString(fmt.Sprintf("\n--- %s ---\n%s\n", path, statusDocs[path]))
	}

	return b.String()
}

// GenerateProjectSummary produces the architectural summary of the first
// snapshot. The summary becomes stable cached context for every
// subsequent change analysis call.
func (a *Analyzer) GenerateProjectSummary(ctx context.Context, fileListing []string, fileContents map[string]string, statusDocs map[string]string) (string, error) {
	var listing strings.Builder
	for _, f := range fileListing {
		listing.WriteString("  " + f + "\n")
	}

	cacheParts := []string{
		fmt.Sprintf("Project: %s\n\nFile listing (%d files):\n%s\nSource code:\n%s",
			a.projectName, len(fileListing), listing.String(), buildSourceContext(fileContents)),
	}
	if len(statusDocs) > 0 {
		cacheParts = append(cacheParts, formatStatusDocs("\n\nDeveloper documentation found in the project:\n", statusDocs))
	}

	query := "Provide a detailed architectural summary of this project. Include:\n" +
		"1. The project's purpose and what it does\n" +
		"2. The programming language(s) and key technologies/frameworks used\n" +
		"3. For each significant file or module: its purpose, key classes/functions, " +
		"and how it relates to other modules\n" +
		"4. The overall architecture and design patterns used\n" +
		"5. Any notable implementation details or patterns\n\n" +
		"Be thorough but concise. This summary will be used as context when analyzing " +
		"future code changes to this project."

	fmt.Println("  Generating project summary...")

	return a.queryText(ctx, TaskSummary, cacheParts, query, summaryMaxTokens)
}

// RefreshProjectSummary regenerates the summary after an inflection
// point, carrying the previous summary forward so the model can note
// what changed.
func (a *Analyzer) RefreshProjectSummary(ctx context.Context, oldSummary string, fileContents map[string]string, statusDocs map[string]string) (string, error) {
	cacheParts := []string{
		fmt.Sprintf("Project: %s\n\nPrevious architectural summary:\n%s\n\nCurrent source code:\n%s",
			a.projectName, oldSummary, buildSourceContext(fileContents)),
	}
	if len(statusDocs) > 0 {
		cacheParts = append(cacheParts, formatStatusDocs("\n\nCurrent developer documentation:\n", statusDocs))
	}

	query := "The project has undergone significant changes since the previous summary. " +
		"Provide an updated architectural summary reflecting the current state. " +
		"Note what has changed from the previous architecture."

	fmt.Println("  Refreshing project summary after major change...")

	return a.queryText(ctx, TaskSummary, cacheParts, query, summaryMaxTokens)
}

// AnalyzeUnit dispatches a unit to its tier's analysis path.
// snapshotPaths holds the zip path per snapshot; the major tier uses it
// to read full file contents on demand.
func (a *Analyzer) AnalyzeUnit(ctx context.Context, unit classify.Unit, diffs []*snapdiff.Diff, snapshotLabels []string, projectSummary string, snapshotPaths []string, binaryExtensions []string) (*Result, error) {
	switch unit.Tier {
	case classify.TierMinorBatch:
		return a.analyzeMinorBatch(ctx, unit, diffs, snapshotLabels, projectSummary)
	case classify.TierMinor, classify.TierModerate, classify.TierMajor:
	default:
		return nil, fmt.Errorf("unknown tier: %s", unit.Tier)
	}

	idx := unit.Transitions[0]
	diff := diffs[idx]
	oldLabel := snapshotLabels[idx]
	newLabel := snapshotLabels[idx+1]

	switch unit.Tier {
	case classify.TierMinor:
		return a.analyzeMinorSingle(ctx, unit, diff, oldLabel, newLabel, projectSummary)
	case classify.TierModerate:
		return a.analyzeModerate(ctx, unit, diff, oldLabel, newLabel, projectSummary)
	default:
		oldZip, newZip := "", ""
		if len(snapshotPaths) > idx+1 {
			oldZip = snapshotPaths[idx]
			newZip = snapshotPaths[idx+1]
		}

		return a.analyzeMajor(ctx, unit, diff, oldLabel, newLabel, projectSummary, oldZip, newZip, binaryExtensions)
	}
}

func (a *Analyzer) projectCachePart(projectSummary string) string {
	return fmt.Sprintf("Project: %s\n\nProject Summary:\n%s", a.projectName, projectSummary)
}

func (a *Analyzer) analyzeMinorBatch(ctx context.Context, unit classify.Unit, diffs []*snapdiff.Diff, snapshotLabels []string, projectSummary string) (*Result, error) {
	batchDiffs := make([]*snapdiff.Diff, 0, len(unit.Transitions))
	labels := make([]labelPair, 0, len(unit.Transitions))
	summaries := make([]FilesSummary, 0, len(unit.Transitions))
	for _, idx := range unit.Transitions {
		batchDiffs = append(batchDiffs, diffs[idx])
		labels = append(labels, labelPair{Old: snapshotLabels[idx], New: snapshotLabels[idx+1]})
		summaries = append(summaries, buildFilesSummary(diffs[idx]))
	}

	query := fmt.Sprintf(
		"The following %d consecutive transitions represent a period of minor changes in the project. "+
			"Provide a brief overview of what work was done across these versions.\n\n%s",
		len(unit.Transitions), formatBatchSummary(batchDiffs, labels))

	fmt.Printf("  Analyzing batch of %d minor transitions...\n", len(unit.Transitions))
	narrative, err := a.queryText(ctx, TaskUnit, []string{a.projectCachePart(projectSummary)}, query, minorBatchMaxTokens)
	if err != nil {
		return nil, err
	}

	return &Result{
		UnitIndex:      unit.Transitions[0],
		Tier:           unit.Tier,
		Narrative:      narrative,
		SnapshotLabels: []string{snapshotLabels[unit.StartSnapshot], snapshotLabels[unit.EndSnapshot]},
		FilesSummary:   mergeFilesSummaries(summaries),
	}, nil
}

func (a *Analyzer) analyzeMinorSingle(ctx context.Context, unit classify.Unit, diff *snapdiff.Diff, oldLabel, newLabel, projectSummary string) (*Result, error) {
	query := fmt.Sprintf(
		"Here are the changes between version %s and %s. Briefly summarize what was changed and why.\n\n%s",
		oldLabel, newLabel, formatDiffForPrompt(diff))

	fmt.Printf("  Analyzing minor change %s -> %s...\n", oldLabel, newLabel)
	narrative, err := a.queryText(ctx, TaskUnit, []string{a.projectCachePart(projectSummary)}, query, minorSingleMaxTokens)
	if err != nil {
		return nil, err
	}

	return &Result{
		UnitIndex:      unit.Transitions[0],
		Tier:           unit.Tier,
		Narrative:      narrative,
		SnapshotLabels: []string{oldLabel, newLabel},
		FilesSummary:   buildFilesSummary(diff),
	}, nil
}

func (a *Analyzer) analyzeModerate(ctx context.Context, unit classify.Unit, diff *snapdiff.Diff, oldLabel, newLabel, projectSummary string) (*Result, error) {
	query := fmt.Sprintf(
		"Analyze the changes between version %s and %s of the project.\n\n"+
			"Changes summary: %d files changed (%d added, %d removed, %d modified, %d moved), %d diff lines.\n\n"+
			"%s\n\n"+
			"Describe:\n"+
			"1. What was changed\n"+
			"2. The likely motivation for these changes\n"+
			"3. Any patterns you observe (bug fixes, new features, refactoring, etc.)\n"+
			"4. If status documents changed, note what the developer said about their work",
		oldLabel, newLabel,
		diff.FilesChanged, len(diff.Added), len(diff.Removed), len(diff.Modified), len(diff.Moved),
		diff.TotalDiffLines,
		formatDiffForPrompt(diff))

	fmt.Printf("  Analyzing moderate change %s -> %s...\n", oldLabel, newLabel)
	narrative, err := a.queryText(ctx, TaskUnit, []string{a.projectCachePart(projectSummary)}, query, moderateMaxTokens)
	if err != nil {
		return nil, err
	}

	return &Result{
		UnitIndex:      unit.Transitions[0],
		Tier:           unit.Tier,
		Narrative:      narrative,
		SnapshotLabels: []string{oldLabel, newLabel},
		FilesSummary:   buildFilesSummary(diff),
	}, nil
}

// analyzeMajor runs a tool-assisted conversation: the model receives the
// change statistics and pulls diffs, file contents, and listings on
// demand. No truncation is applied.
func (a *Analyzer) analyzeMajor(ctx context.Context, unit classify.Unit, diff *snapdiff.Diff, oldLabel, newLabel, projectSummary, oldZip, newZip string, binaryExtensions []string) (*Result, error) {
	snapCtx := NewSnapshotContext(diff, oldZip, newZip, binaryExtensions)
	summary := snapCtx.ChangeSummary()

	initialQuery := fmt.Sprintf(
		"MAJOR TRANSITION: %s -> %s\n\n"+
			"Change statistics:\n"+
			"  Files added:     %d\n"+
			"  Files removed:   %d\n"+
			"  Files modified:  %d\n"+
			"  Files moved:     %d\n"+
			"  Total diff lines: %d\n"+
			"  Total lines in new snapshot: %d\n\n"+
			"You have tools to explore this transition in detail. Use them to:\n"+
			"1. List the modified/added/removed files to understand the scope\n"+
			"2. Read diffs for files that seem significant\n"+
			"3. Read file contents when a diff needs more context\n"+
			"4. Check status docs for the developer's own notes\n\n"+
			"After investigating, write a comprehensive narrative covering:\n"+
			"- What changed at a high level\n"+
			"- Why these changes were likely made\n"+
			"- What problems were being solved\n"+
			"- The impact on the project's architecture\n"+
			"- Any lessons that can be inferred from the changes\n\n"+
			"Write in a clear, narrative style suitable for a project history document.",
		oldLabel, newLabel,
		summary["files_added"], summary["files_removed"], summary["files_modified"],
		summary["files_moved"], summary["total_diff_lines"], summary["total_lines_in_new_snapshot"])

	fmt.Printf("  Analyzing major change %s -> %s (tool-assisted)...\n", oldLabel, newLabel)
	narrative, err := a.engine.RunToolConversation(ctx, llm.ToolConversation{
		ContextBlocks: []string{systemMessage, writingStyle, a.projectCachePart(projectSummary)},
		Prompt:        initialQuery,
		Tools:         snapCtx.Tools(),
		Handlers:      snapCtx.Handlers(),
		MaxTokens:     majorMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		UnitIndex:      unit.Transitions[0],
		Tier:           unit.Tier,
		Narrative:      narrative,
		SnapshotLabels: []string{oldLabel, newLabel},
		FilesSummary:   buildFilesSummary(diff),
	}, nil
}

// GenerateOverview writes the top-level narrative of the whole history.
// Small projects fit in one call; larger ones let the model browse unit
// narratives through tools.
func (a *Analyzer) GenerateOverview(ctx context.Context, results []Result) (string, error) {
	if len(results) <= oneshotOverviewLimit {
		return a.overviewOneshot(ctx, results)
	}

	return a.overviewToolAssisted(ctx, results)
}

func (a *Analyzer) overviewOneshot(ctx context.Context, results []Result) (string, error) {
	var analyses strings.Builder
	for _, r := range results {
		labelRange := fmt.Sprintf("%s -> %s", r.SnapshotLabels[0], r.SnapshotLabels[len(r.SnapshotLabels)-1])
		analyses.WriteString(fmt.Sprintf("\n### %s (%s)\n%s\n", labelRange, r.Tier, r.Narrative))
	}

	cacheParts := []string{
		fmt.Sprintf("Project: %s\n\nIndividual analysis results for %d transitions:\n%s",
			a.projectName, len(results), analyses.String()),
	}

	query := "Based on all the individual transition analyses above, write a high-level " +
		"narrative overview of this project's evolution. Cover:\n" +
		"1. What the project is and its overall purpose\n" +
		"2. The major phases of development\n" +
		"3. Key milestones and turning points\n" +
		"4. Significant challenges or roadblocks encountered and how they were addressed\n" +
		"5. Architectural evolution and design decisions\n" +
		"6. Lessons that can be inferred from the development history\n\n" +
		"Write in a clear, engaging narrative style. This is the executive summary " +
		"that readers will see first."

	fmt.Println("  Generating project overview...")

	return a.queryText(ctx, TaskOverview, cacheParts, query, overviewMaxTokens)
}

func (a *Analyzer) overviewToolAssisted(ctx context.Context, results []Result) (string, error) {
	overviewCtx := NewOverviewContext(results)

	var index strings.Builder
	index.WriteString(fmt.Sprintf("Project: %s\n\n", a.projectName))
	index.WriteString(fmt.Sprintf("Total transitions: %d\n\n", len(results)))
	index.WriteString("Transition index:\n")
	for i, r := range results {
		labelRange := fmt.Sprintf("%s -> %s", r.SnapshotLabels[0], r.SnapshotLabels[len(r.SnapshotLabels)-1])
		index.WriteString(fmt.Sprintf("  [%d] %s (tier: %s)\n", i, labelRange, r.Tier))
	}

	initialQuery := index.String() + "\n" +
		"You have tools to read individual transition narratives by index or range.\n" +
		"Use them to build a high-level narrative overview of this project's evolution.\n\n" +
		"Approach:\n" +
		"1. Read the major/moderate transitions first for key milestones\n" +
		"2. Sample minor transitions for context on incremental work\n" +
		"3. Write a cohesive narrative covering:\n" +
		"   - What the project is and its overall purpose\n" +
		"   - The major phases of development\n" +
		"   - Key milestones and turning points\n" +
		"   - Significant challenges or roadblocks encountered and how they were addressed\n" +
		"   - Architectural evolution and design decisions\n" +
		"   - Lessons that can be inferred from the development history\n\n" +
		"Write in a clear, engaging narrative style. This is the executive summary " +
		"that readers will see first."

	fmt.Printf("  Generating project overview (tool-assisted, %d transitions)...\n", len(results))

	return a.engine.RunToolConversation(ctx, llm.ToolConversation{
		ContextBlocks: []string{systemMessage, writingStyle},
		Prompt:        initialQuery,
		Tools:         overviewCtx.Tools(),
		Handlers:      overviewCtx.Handlers(),
		MaxTokens:     overviewMaxTokens,
	})
}
