package commands

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, dir, name string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for entryName, content := range entries {
		entry, err := w.Create(entryName)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestLoadConfig_Overrides(t *testing.T) {
	rc := &RootCommand{zipDir: "/zips", outputDir: "/out", model: "haiku"}

	cfg, err := rc.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/zips", cfg.ZipDirectory)
	assert.Equal(t, "/out", cfg.Output.Directory)
	assert.Equal(t, "haiku", cfg.CurrentEngine)
}

func TestLoadConfig_EmptyOverridesKeepDefaults(t *testing.T) {
	cfg, err := (&RootCommand{}).loadConfig()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.ZipDirectory)
	assert.Equal(t, "output", cfg.Output.Directory)
}

func TestLoadConfig_UnknownModel(t *testing.T) {
	_, err := (&RootCommand{model: "turbo-9000"}).loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown model "turbo-9000"`)
	assert.Contains(t, err.Error(), "haiku")
}

func TestRoot_PlanOnly(t *testing.T) {
	zipDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	writeZip(t, zipDir, "demo_20250101.zip", map[string]string{"main.py": "print(1)\n"})
	writeZip(t, zipDir, "demo_20250102.zip", map[string]string{"main.py": "print(2)\n"})

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"demo", "--plan-only", "--zip-dir", zipDir, "--output-dir", outDir})
	require.NoError(t, cmd.Execute())
}

func TestRoot_NoProjectPrintsHelpAndFails(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrProjectRequired)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRoot_DrillDownNeedsTwoLabels(t *testing.T) {
	zipDir := t.TempDir()
	writeZip(t, zipDir, "demo_20250101.zip", map[string]string{"a": "x"})
	writeZip(t, zipDir, "demo_20250102.zip", map[string]string{"a": "y"})

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"demo", "--zip-dir", zipDir, "--drill-down", "20250101"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 2 labels")
}

func TestRoot_ListProjects(t *testing.T) {
	zipDir := t.TempDir()
	writeZip(t, zipDir, "demo_20250101.zip", map[string]string{"a": "x"})
	writeZip(t, zipDir, "demo_20250102.zip", map[string]string{"a": "y"})
	writeZip(t, zipDir, "solo_20250101.zip", map[string]string{"a": "z"})

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--list-projects", "--zip-dir", zipDir})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "demo")
	assert.NotContains(t, out.String(), "solo")
	assert.Contains(t, out.String(), "1 projects found.")
}

func TestRoot_ListProjectsEmptyDirectory(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--list-projects", "--zip-dir", t.TempDir()})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "No projects with 2+ snapshots found")
}
