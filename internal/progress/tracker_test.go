package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintSnapshots_OrderIndependent(t *testing.T) {
	t.Parallel()

	a := FingerprintSnapshots([]string{"/z/p_0001.zip", "/z/p_0002.zip"})
	b := FingerprintSnapshots([]string{"/z/p_0002.zip", "/z/p_0001.zip"})

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestFingerprintSnapshots_ChangesWithSet(t *testing.T) {
	t.Parallel()

	a := FingerprintSnapshots([]string{"/z/p_0001.zip"})
	b := FingerprintSnapshots([]string{"/z/p_0001.zip", "/z/p_0002.zip"})

	assert.NotEqual(t, a, b)
}

func TestTracker_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tracker := NewTracker("proj", dir)
	require.NoError(t, tracker.Initialize("abcd1234abcd1234", 5))

	_, ok := tracker.ProjectSummary()
	assert.False(t, ok)
	require.NoError(t, tracker.SetProjectSummary("a tool for testing"))
	require.NoError(t, tracker.MarkUnitCompleted(1, json.RawMessage(`{"tier":"minor"}`)))
	require.NoError(t, tracker.MarkUnitCompleted(0, json.RawMessage(`{"tier":"major"}`)))

	// A fresh tracker over the same file sees everything.
	reloaded := NewTracker("proj", dir)
	assert.True(t, reloaded.IsValidFor("abcd1234abcd1234"))
	assert.False(t, reloaded.IsValidFor("other"))

	summary, ok := reloaded.ProjectSummary()
	require.True(t, ok)
	assert.Equal(t, "a tool for testing", summary)

	assert.True(t, reloaded.IsUnitCompleted(0))
	assert.True(t, reloaded.IsUnitCompleted(1))
	assert.False(t, reloaded.IsUnitCompleted(2))
	assert.Equal(t, 2, reloaded.CompletedCount())

	result, ok := reloaded.UnitResult(0)
	require.True(t, ok)
	assert.JSONEq(t, `{"tier":"major"}`, string(result))

	all := reloaded.AllResults()
	assert.Len(t, all, 2)
}

func TestTracker_CompletedUnitsStaySorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tracker := NewTracker("proj", dir)
	require.NoError(t, tracker.Initialize("h", 4))
	require.NoError(t, tracker.MarkUnitCompleted(2, json.RawMessage(`{}`)))
	require.NoError(t, tracker.MarkUnitCompleted(0, json.RawMessage(`{}`)))

	raw, err := os.ReadFile(filepath.Join(dir, "proj_progress.json"))
	require.NoError(t, err)

	var doc struct {
		CompletedUnits []int `json:"completed_units"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []int{0, 2}, doc.CompletedUnits)
}

func TestTracker_CorruptFileStartsFresh(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proj_progress.json"), []byte("{not json"), 0o644))

	tracker := NewTracker("proj", dir)
	assert.False(t, tracker.IsValidFor("anything"))
	assert.Equal(t, 0, tracker.CompletedCount())
}

func TestTracker_MarkTwiceKeepsLatestResult(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tracker := NewTracker("proj", dir)
	require.NoError(t, tracker.Initialize("h", 3))
	require.NoError(t, tracker.MarkUnitCompleted(1, json.RawMessage(`{"v":1}`)))
	require.NoError(t, tracker.MarkUnitCompleted(1, json.RawMessage(`{"v":2}`)))

	assert.Equal(t, 1, tracker.CompletedCount())
	result, ok := tracker.UnitResult(1)
	require.True(t, ok)
	assert.JSONEq(t, `{"v":2}`, string(result))
}

func TestTracker_StatusSummary(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tracker := NewTracker("proj", dir)
	require.NoError(t, tracker.Initialize("h", 3))

	assert.Equal(t, "Progress: 0/3 units completed, project summary not yet generated",
		tracker.StatusSummary(3))

	require.NoError(t, tracker.SetProjectSummary("s"))
	require.NoError(t, tracker.MarkUnitCompleted(0, json.RawMessage(`{}`)))
	assert.Equal(t, "Progress: 1/3 units completed, project summary cached",
		tracker.StatusSummary(3))
}
