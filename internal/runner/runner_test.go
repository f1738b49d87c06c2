package runner

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/retrospect/internal/config"
)

func writeZip(t *testing.T, dir, name string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
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

	return path
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.ZipDirectory = t.TempDir()
	cfg.Output.Directory = filepath.Join(t.TempDir(), "out")

	return cfg
}

func TestAnalyze_PlanOnlyStopsBeforeModelCalls(t *testing.T) {
	cfg := testConfig(t)
	writeZip(t, cfg.ZipDirectory, "demo_20250101.zip", map[string]string{
		"main.py": "print('v1')\n",
	})
	writeZip(t, cfg.ZipDirectory, "demo_20250102.zip", map[string]string{
		"main.py": "print('v2')\nprint('more')\n",
		"util.py": "def f(): pass\n",
	})

	// Plan-only must not need API keys or touch any provider.
	r := New(cfg, "demo")
	require.NoError(t, r.Analyze(context.Background(), true))

	// No side effects beyond stdout: no report, cache or progress file.
	_, err := os.Stat(filepath.Join(cfg.Output.Directory, "demo_history.md"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cfg.Output.Directory, cacheFileName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(cfg.Output.Directory, "demo_progress.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyze_UnknownProjectFails(t *testing.T) {
	cfg := testConfig(t)

	err := New(cfg, "missing").Analyze(context.Background(), true)
	require.Error(t, err)
}

func TestDrillDown_UnknownLabelListsAvailable(t *testing.T) {
	cfg := testConfig(t)
	writeZip(t, cfg.ZipDirectory, "demo_20250101.zip", map[string]string{"a.py": "x\n"})
	writeZip(t, cfg.ZipDirectory, "demo_20250102.zip", map[string]string{"a.py": "y\n"})

	err := New(cfg, "demo").DrillDown(context.Background(), "20250101", "20990101")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"20990101" not found`)
	assert.Contains(t, err.Error(), "20250101, 20250102")
}

func TestStatusDocsFrom(t *testing.T) {
	t.Parallel()

	listing := []string{"main.py", "TODO.md", "docs/readme.md"}
	contents := map[string]string{
		"main.py": "code",
		"TODO.md": "ship it",
	}

	docs := statusDocsFrom(listing, contents)
	assert.Equal(t, map[string]string{"TODO.md": "ship it"}, docs)
}

func TestResolveFallbacks_MapsKeysToModelIDs(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg, "demo")

	resolved := r.resolveFallbacks([]string{"haiku", "nope"})
	assert.Equal(t, []string{cfg.Models["haiku"].Model}, resolved)
}
