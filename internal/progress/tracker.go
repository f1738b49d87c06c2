// Package progress persists per-project analysis state so interrupted runs
// resume where they stopped. State lives in <output>/<project>_progress.json
// and is invalidated when the snapshot set changes.
package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// state is the on-disk document. Unit results stay raw JSON here; the
// analysis layer owns their schema.
type state struct {
	ProjectName     string                     `json:"project_name"`
	SnapshotsHash   string                     `json:"snapshots_hash"`
	SnapshotCount   int                        `json:"snapshot_count"`
	ProjectSummary  *string                    `json:"project_summary"`
	CompletedUnits  []int                      `json:"completed_units"`
	AnalysisResults map[string]json.RawMessage `json:"analysis_results"`
	LastUpdated     string                     `json:"last_updated"`
}

// Tracker tracks analysis progress for a single project.
type Tracker struct {
	projectName string
	outputDir   string
	path        string
	data        state
}

// fingerprintLen is the number of hex characters kept from the snapshot
// set hash.
const fingerprintLen = 16

// FingerprintSnapshots hashes the snapshot path list to detect additions
// and removals between runs. Order does not matter.
func FingerprintSnapshots(paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	joined := ""
	for i, p := range sorted {
		if i > 0 {
			joined += "\n"
		}
		joined += p
	}
	sum := sha256.Sum256([]byte(joined))

	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// NewTracker loads existing progress for project from outputDir. A missing
// file starts empty; a corrupt file is reported and discarded rather than
// aborting the run.
func NewTracker(projectName, outputDir string) *Tracker {
	t := &Tracker{
		projectName: projectName,
		outputDir:   outputDir,
		path:        filepath.Join(outputDir, projectName+"_progress.json"),
	}
	t.load()

	return t
}

func (t *Tracker) load() {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		t.data = state{}

		return
	}
	if err := json.Unmarshal(raw, &t.data); err != nil {
		fmt.Printf("Warning: Could not load progress file, starting fresh: %v\n", err)
		t.data = state{}
	}
}

// save writes the progress file atomically: temp file in the same
// directory, then rename over the target.
func (t *Tracker) save() error {
	if err := os.MkdirAll(t.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	t.data.LastUpdated = time.Now().Format(time.RFC3339)

	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}

	tmp, err := os.CreateTemp(t.outputDir, "progress_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp progress file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write temp progress file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp progress file: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("replace progress file: %w", err)
	}

	return nil
}

// IsValidFor reports whether the saved progress belongs to the given
// snapshot set.
func (t *Tracker) IsValidFor(snapshotsHash string) bool {
	return t.data.SnapshotsHash == snapshotsHash
}

// Initialize resets progress for a new analysis run.
func (t *Tracker) Initialize(snapshotsHash string, snapshotCount int) error {
	t.data = state{
		ProjectName:     t.projectName,
		SnapshotsHash:   snapshotsHash,
		SnapshotCount:   snapshotCount,
		CompletedUnits:  []int{},
		AnalysisResults: map[string]json.RawMessage{},
	}

	return t.save()
}

// ProjectSummary returns the cached project summary and whether one is
// stored.
func (t *Tracker) ProjectSummary() (string, bool) {
	if t.data.ProjectSummary == nil {
		return "", false
	}

	return *t.data.ProjectSummary, true
}

// SetProjectSummary stores the project summary.
func (t *Tracker) SetProjectSummary(summary string) error {
	t.data.ProjectSummary = &summary

	return t.save()
}

// IsUnitCompleted reports whether the unit at index finished in an earlier
// run.
func (t *Tracker) IsUnitCompleted(index int) bool {
	for _, u := range t.data.CompletedUnits {
		if u == index {
			return true
		}
	}

	return false
}

// MarkUnitCompleted records a finished unit and its result. Marking the
// same unit twice keeps the latest result.
func (t *Tracker) MarkUnitCompleted(index int, result json.RawMessage) error {
	if !t.IsUnitCompleted(index) {
		t.data.CompletedUnits = append(t.data.CompletedUnits, index)
		sort.Ints(t.data.CompletedUnits)
	}
	if t.data.AnalysisResults == nil {
		t.data.AnalysisResults = map[string]json.RawMessage{}
	}
	t.data.AnalysisResults[strconv.Itoa(index)] = result

	return t.save()
}

// UnitResult returns the stored result for a completed unit.
func (t *Tracker) UnitResult(index int) (json.RawMessage, bool) {
	raw, ok := t.data.AnalysisResults[strconv.Itoa(index)]

	return raw, ok
}

// AllResults returns every stored result keyed by unit index.
func (t *Tracker) AllResults() map[int]json.RawMessage {
	results := make(map[int]json.RawMessage, len(t.data.AnalysisResults))
	for key, raw := range t.data.AnalysisResults {
		index, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		results[index] = raw
	}

	return results
}

// CompletedCount returns the number of completed units.
func (t *Tracker) CompletedCount() int {
	return len(t.data.CompletedUnits)
}

// StatusSummary renders a one-line resume status.
func (t *Tracker) StatusSummary(totalUnits int) string {
	summaryState := "not yet generated"
	if t.data.ProjectSummary != nil {
		summaryState = "cached"
	}

	return fmt.Sprintf("Progress: %d/%d units completed, project summary %s",
		t.CompletedCount(), totalUnits, summaryState)
}
