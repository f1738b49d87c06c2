// Package runner drives the analysis pipeline: discover snapshots, diff
// them locally, plan the work, then run the model calls and assemble the
// report. Progress is checkpointed so interrupted runs resume.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/retrospect/internal/analysis"
	"github.com/Sumatoshi-tech/retrospect/internal/apicache"
	"github.com/Sumatoshi-tech/retrospect/internal/classify"
	"github.com/Sumatoshi-tech/retrospect/internal/config"
	"github.com/Sumatoshi-tech/retrospect/internal/llm"
	"github.com/Sumatoshi-tech/retrospect/internal/progress"
	"github.com/Sumatoshi-tech/retrospect/internal/report"
	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
	"github.com/Sumatoshi-tech/retrospect/internal/snapshot"
)

// cacheFileName is the response cache file inside the output directory.
const cacheFileName = "api_cache.json"

// Runner analyzes one project.
type Runner struct {
	cfg         *config.Config
	projectName string
	outputDir   string
}

// New builds a Runner for a project. The output directory is created on
// first use.
func New(cfg *config.Config, projectName string) *Runner {
	return &Runner{
		cfg:         cfg,
		projectName: projectName,
		outputDir:   cfg.Output.Directory,
	}
}

// buildAnalyzer wires the cache, run log, providers and engine. Called
// only when model calls will actually happen, so plan-only runs never
// need API keys.
func (r *Runner) buildAnalyzer() (*analysis.Analyzer, error) {
	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	cache, err := apicache.Open(filepath.Join(r.outputDir, cacheFileName), "")
	if err != nil {
		return nil, err
	}

	runLog, err := llm.OpenRunLog(r.outputDir, r.cfg.LogStem)
	if err != nil {
		return nil, err
	}

	primary, err := llm.NewProvider(r.cfg.CurrentModel())
	if err != nil {
		return nil, err
	}
	fmt.Printf("Using model: %s\n", primary.Model())

	engine := llm.NewEngine(llm.EngineConfig{
		Primary:            primary,
		Cache:              cache,
		Log:                runLog,
		MaxRetriesPerModel: r.cfg.Retry.MaxRetriesPerModel,
		FallbackModels:     r.resolveFallbacks(r.cfg.Retry.FallbackModels),
		Factory: func(model string) (llm.Provider, error) {
			for _, m := range r.cfg.Models {
				if m.Model == model {
					return llm.NewProvider(m)
				}
			}

			return nil, fmt.Errorf("no configuration for model %s", model)
		},
	})

	taskFallbacks := func(task string) []string {
		return r.resolveFallbacks(r.cfg.TaskFallbacks(task))
	}

	return analysis.NewAnalyzer(engine, r.projectName, taskFallbacks), nil
}

// resolveFallbacks maps models-map keys to platform model identifiers,
// which is what the engine hands to the provider factory.
func (r *Runner) resolveFallbacks(keys []string) []string {
	resolved := make([]string, 0, len(keys))
	for _, key := range keys {
		if m, err := r.cfg.ModelFor(key); err == nil {
			resolved = append(resolved, m.Model)
		} else {
			fmt.Printf("Warning: ignoring unknown fallback model %q\n", key)
		}
	}

	return resolved
}

// statusDocsFrom filters a snapshot's contents down to status documents.
func statusDocsFrom(listing []string, contents map[string]string) map[string]string {
	docs := map[string]string{}
	for _, path := range listing {
		if !snapdiff.IsStatusDoc(path) {
			continue
		}
		if content, ok := contents[path]; ok {
			docs[path] = content
		}
	}

	return docs
}

// Analyze runs the full pipeline. With planOnly the run stops after the
// local phases, before any model call.
func (r *Runner) Analyze(ctx context.Context, planOnly bool) error {
	// Phase 1: discovery.
	fmt.Printf("\nPhase 1: Discovering snapshots for '%s'...\n", r.projectName)
	snapshots, err := snapshot.Discover(r.cfg.ZipDirectory, r.projectName)
	if err != nil {
		return err
	}
	fmt.Printf("  Found %d snapshots\n", len(snapshots))
	fmt.Printf("  Range: %s to %s\n", snapshots[0].Label, snapshots[len(snapshots)-1].Label)

	labels := make([]string, len(snapshots))
	paths := make([]string, len(snapshots))
	for i, s := range snapshots {
		labels[i] = s.Label
		paths[i] = s.Path
	}

	tracker := progress.NewTracker(r.projectName, r.outputDir)
	snapshotsHash := progress.FingerprintSnapshots(paths)
	freshStart := !tracker.IsValidFor(snapshotsHash)
	if freshStart {
		fmt.Println("  Starting fresh analysis (snapshot set changed or no prior progress)")
	} else {
		fmt.Printf("  Resuming: %d units previously completed\n", tracker.CompletedCount())
	}

	// Phase 2: local diffing.
	fmt.Printf("\nPhase 2: Computing %d diffs locally...\n", len(snapshots)-1)
	diffs := make([]*snapdiff.Diff, 0, len(snapshots)-1)
	magnitudes := make([]float64, 0, len(snapshots)-1)
	for i := 0; i < len(snapshots)-1; i++ {
		fmt.Printf("  [%d/%d] %s -> %s...", i+1, len(snapshots)-1, snapshots[i].Label, snapshots[i+1].Label)
		d, err := snapdiff.Compute(snapshots[i].Path, snapshots[i+1].Path, snapdiff.Options{
			BinaryExtensions: r.cfg.BinaryExtensions,
		})
		if err != nil {
			return fmt.Errorf("diff %s -> %s: %w", snapshots[i].Label, snapshots[i+1].Label, err)
		}
		mag := classify.Magnitude(d)
		diffs = append(diffs, d)
		magnitudes = append(magnitudes, mag)
		fmt.Printf(" %d files, %d lines, mag=%.4f\n", d.FilesChanged, d.TotalDiffLines, mag)
	}

	// Phase 3: planning.
	fmt.Println("\nPhase 3: Planning analysis...")
	breakpoints := classify.FindBreakpoints(magnitudes)
	units := classify.PlanUnits(magnitudes, breakpoints)
	fmt.Println(classify.SummarizePlan(units, breakpoints))

	if planOnly {
		fmt.Println("\n--plan-only: Stopping before API calls.")
		fmt.Println("To proceed with full analysis, run again without --plan-only.")

		return nil
	}

	analyzer, err := r.buildAnalyzer()
	if err != nil {
		return err
	}

	if freshStart {
		if err := tracker.Initialize(snapshotsHash, len(snapshots)); err != nil {
			return err
		}
	}

	// Phase 4: project understanding.
	fmt.Println("\nPhase 4: Project understanding...")
	projectSummary, ok := tracker.ProjectSummary()
	if ok {
		fmt.Println("  Using cached project summary")
	} else {
		fmt.Println("  Generating project summary from first snapshot...")
		listing, contents, err := snapdiff.ReadSnapshot(snapshots[0].Path, r.cfg.BinaryExtensions)
		if err != nil {
			return fmt.Errorf("read first snapshot: %w", err)
		}
		projectSummary, err = analyzer.GenerateProjectSummary(ctx, listing, contents, statusDocsFrom(listing, contents))
		if err != nil {
			return err
		}
		if err := tracker.SetProjectSummary(projectSummary); err != nil {
			return err
		}
		fmt.Printf("  Summary generated (%d chars)\n", len(projectSummary))
	}

	// Phase 5: model analysis.
	fmt.Printf("\nPhase 5: Analyzing %d units...\n", len(units))
	results := make([]analysis.Result, 0, len(units))
	for i, unit := range units {
		if tracker.IsUnitCompleted(i) {
			if raw, ok := tracker.UnitResult(i); ok {
				var stored analysis.Result
				if err := json.Unmarshal(raw, &stored); err == nil {
					results = append(results, stored)
					fmt.Printf("  [%d/%d] %s - CACHED\n", i+1, len(units), unit.Description)

					continue
				}
			}
		}

		fmt.Printf("  [%d/%d] %s\n", i+1, len(units), unit.Description)
		result, err := analyzer.AnalyzeUnit(ctx, unit, diffs, labels, projectSummary, paths, r.cfg.BinaryExtensions)
		if err != nil {
			return fmt.Errorf("analyze unit %d: %w", i, err)
		}
		results = append(results, *result)

		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode unit result: %w", err)
		}
		if err := tracker.MarkUnitCompleted(i, raw); err != nil {
			return err
		}

		if unit.IsInflectionPoint && unit.EndSnapshot < len(snapshots) {
			listing, contents, err := snapdiff.ReadSnapshot(snapshots[unit.EndSnapshot].Path, r.cfg.BinaryExtensions)
			if err != nil {
				return fmt.Errorf("read post-change snapshot: %w", err)
			}
			projectSummary, err = analyzer.RefreshProjectSummary(ctx, projectSummary, contents, statusDocsFrom(listing, contents))
			if err != nil {
				return err
			}
			if err := tracker.SetProjectSummary(projectSummary); err != nil {
				return err
			}
			fmt.Printf("  Project summary refreshed (%d chars)\n", len(projectSummary))
		}
	}

	// Phase 6: report.
	fmt.Println("\nPhase 6: Generating report...")
	overview, err := analyzer.GenerateOverview(ctx, results)
	if err != nil {
		return err
	}

	reportPath, err := report.Generate(report.Params{
		ProjectName:    r.projectName,
		Overview:       overview,
		Results:        results,
		Units:          units,
		SnapshotLabels: labels,
		Breakpoints:    breakpoints,
		OutputDir:      r.outputDir,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nReport written to: %s\n", reportPath)
	fmt.Printf("Analysis complete: %d units analyzed across %d snapshots.\n", len(results), len(snapshots))

	return nil
}

// DrillDown compares two specific snapshots with the full tool-assisted
// treatment, regardless of their planned tier.
func (r *Runner) DrillDown(ctx context.Context, labelA, labelB string) error {
	snapshots, err := snapshot.Discover(r.cfg.ZipDirectory, r.projectName)
	if err != nil {
		return err
	}

	var snapA, snapB *snapshot.Info
	for i := range snapshots {
		if snapshots[i].Label == labelA {
			snapA = &snapshots[i]
		}
		if snapshots[i].Label == labelB {
			snapB = &snapshots[i]
		}
	}
	if snapA == nil {
		return fmt.Errorf("snapshot %q not found (available: %s)", labelA, availableLabels(snapshots))
	}
	if snapB == nil {
		return fmt.Errorf("snapshot %q not found (available: %s)", labelB, availableLabels(snapshots))
	}
	if snapB.Key.Less(snapA.Key) {
		snapA, snapB = snapB, snapA
	}

	fmt.Printf("Drill-down analysis: %s -> %s\n", snapA.Label, snapB.Label)

	analyzer, err := r.buildAnalyzer()
	if err != nil {
		return err
	}

	tracker := progress.NewTracker(r.projectName, r.outputDir)
	projectSummary, ok := tracker.ProjectSummary()
	if !ok {
		fmt.Println("\nPhase 1: Generating project understanding...")
		listing, contents, err := snapdiff.ReadSnapshot(snapA.Path, r.cfg.BinaryExtensions)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		projectSummary, err = analyzer.GenerateProjectSummary(ctx, listing, contents, statusDocsFrom(listing, contents))
		if err != nil {
			return err
		}
		if err := tracker.SetProjectSummary(projectSummary); err != nil {
			return err
		}
	}

	fmt.Println("\nPhase 2: Diffing snapshots...")
	diff, err := snapdiff.Compute(snapA.Path, snapB.Path, snapdiff.Options{
		BinaryExtensions: r.cfg.BinaryExtensions,
	})
	if err != nil {
		return fmt.Errorf("diff snapshots: %w", err)
	}
	fmt.Printf("  %d files changed, %d diff lines\n", diff.FilesChanged, diff.TotalDiffLines)

	fmt.Println("\nPhase 3: Deep analysis...")
	unit := classify.Unit{
		StartSnapshot:  0,
		EndSnapshot:    1,
		Transitions:    []int{0},
		Tier:           classify.TierMajor,
		TotalMagnitude: classify.Magnitude(diff),
		Description:    fmt.Sprintf("Drill-down: %s -> %s", snapA.Label, snapB.Label),
	}

	result, err := analyzer.AnalyzeUnit(ctx, unit,
		[]*snapdiff.Diff{diff}, []string{snapA.Label, snapB.Label},
		projectSummary, []string{snapA.Path, snapB.Path}, r.cfg.BinaryExtensions)
	if err != nil {
		return err
	}

	rule := "============================================================"
	fmt.Println("\n" + rule)
	fmt.Printf("ANALYSIS: %s -> %s\n", snapA.Label, snapB.Label)
	fmt.Println(rule)
	fmt.Println(result.Narrative)
	fmt.Println(rule)

	return nil
}

func availableLabels(snapshots []snapshot.Info) string {
	out := ""
	for i, s := range snapshots {
		if i > 0 {
			out += ", "
		}
		out += s.Label
	}

	return out
}
