package apicache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_Deterministic(t *testing.T) {
	t.Parallel()

	a := Key("context", "query", "model-a", 1000)
	b := Key("context", "query", "model-a", 1000)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestKey_SensitiveToEveryPart(t *testing.T) {
	t.Parallel()

	base := Key("context", "query", "model-a", 1000)
	assert.NotEqual(t, base, Key("context2", "query", "model-a", 1000))
	assert.NotEqual(t, base, Key("context", "query2", "model-a", 1000))
	assert.NotEqual(t, base, Key("context", "query", "model-b", 1000))
	assert.NotEqual(t, base, Key("context", "query", "model-a", 2000))
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_cache.json")
	cache, err := Open(path, "")
	require.NoError(t, err)

	key := Key("ctx", "q", "m", 100)
	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, "the answer")

	// A fresh instance reads what the first one persisted.
	reopened, err := Open(path, "")
	require.NoError(t, err)
	got, ok := reopened.Get(key)
	require.True(t, ok)
	assert.Equal(t, "the answer", got)
}

func TestCache_FirstInsertWins(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_cache.json")
	cache, err := Open(path, "")
	require.NoError(t, err)

	key := Key("ctx", "q", "m", 100)
	cache.Set(key, "first")
	cache.Set(key, "second")

	got, _ := cache.Get(key)
	assert.Equal(t, "first", got)
}

func TestCache_Remove(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "api_cache.json")
	cache, err := Open(path, "")
	require.NoError(t, err)

	key := Key("ctx", "q", "m", 100)
	cache.Set(key, "value")

	assert.True(t, cache.Remove(key))
	assert.False(t, cache.Remove(key))
	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestCache_CorruptMainFileBacksUpAndRefuses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "api_cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Open(path, "")
	require.ErrorIs(t, err, ErrCorrupt)

	// The corrupt file is preserved and a backup exists alongside it.
	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(original))

	backups, err := filepath.Glob(path + ".corrupted.*.bak")
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestCache_OldCachePromotion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "api_cache_2024.json")
	key := Key("ctx", "q", "m", 100)
	require.NoError(t, os.WriteFile(oldPath,
		[]byte(`{"`+key+`": {"response": "from the old days", "model": "legacy-field"}}`), 0o644))

	mainPath := filepath.Join(dir, "api_cache.json")
	cache, err := Open(mainPath, oldPath)
	require.NoError(t, err)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "from the old days", got)

	// The hit was promoted into the main file, normalized to response-only.
	reopened, err := Open(mainPath, "")
	require.NoError(t, err)
	got, ok = reopened.Get(key)
	require.True(t, ok)
	assert.Equal(t, "from the old days", got)

	// The old file is never rewritten.
	oldRaw, err := os.ReadFile(oldPath)
	require.NoError(t, err)
	assert.Contains(t, string(oldRaw), "legacy-field")
}

func TestCache_OldCacheAutoDetected(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	key := Key("ctx", "q", "m", 100)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api_cache_backup.json"),
		[]byte(`{"`+key+`": {"response": "found me"}}`), 0o644))

	cache, err := Open(filepath.Join(dir, "api_cache.json"), "")
	require.NoError(t, err)

	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "found me", got)
}

func TestCache_CorruptOldCacheIsTolerated(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "api_cache_old.json"), []byte("nope"), 0o644))

	cache, err := Open(filepath.Join(dir, "api_cache.json"), "")
	require.NoError(t, err)

	key := Key("ctx", "q", "m", 100)
	cache.Set(key, "still works")
	got, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "still works", got)
}

func TestCache_SweepsOrphanTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	orphan := filepath.Join(dir, ".api_cache_tmp_12345.json")
	require.NoError(t, os.WriteFile(orphan, []byte("{}"), 0o644))

	_, err := Open(filepath.Join(dir, "api_cache.json"), "")
	require.NoError(t, err)

	_, statErr := os.Stat(orphan)
	assert.True(t, os.IsNotExist(statErr))
}
