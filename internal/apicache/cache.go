// Package apicache is a content-addressed cache for LLM responses. Each
// entry is keyed by a SHA-256 hash over the full request (stable context,
// query, model name, token limit) and stores only the response text, since
// the key already identifies everything else.
//
// The cache supports consolidation: an older cache file can be read as a
// fallback, and every hit found there is promoted into the main file. The
// old file itself is never written.
package apicache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// entry is the on-disk value shape. Older caches stored extra request
// fields alongside the response; decoding ignores them and promotion
// rewrites the entry in the minimal shape.
type entry struct {
	Response string `json:"response"`
}

// ErrCorrupt is wrapped by Open when the main cache file cannot be
// decoded. The file is backed up and never overwritten so responses can be
// recovered by hand.
var ErrCorrupt = errors.New("cache file is corrupted")

// Cache holds responses for one cache file plus an optional read-only old
// cache.
type Cache struct {
	path    string
	oldPath string
	main    map[string]entry
	old     map[string]entry
}

// Write retry parameters for platforms that hold the target file open.
const (
	saveRetries   = 5
	saveBaseDelay = 100 * time.Millisecond
)

// Open loads the cache at path. When oldPath is empty, an old cache is
// auto-detected from files matching api_cache_*.json next to the main
// file. A corrupt main cache is backed up with a timestamped name and
// Open fails with ErrCorrupt; a corrupt old cache only costs a warning.
func Open(path, oldPath string) (*Cache, error) {
	c := &Cache{path: path, oldPath: oldPath}
	if c.oldPath == "" {
		c.oldPath = detectOldCache(path)
	}

	sweepTempFiles(path)

	var err error
	c.main, err = loadFile(path, true)
	if err != nil {
		return nil, err
	}

	if c.oldPath != "" {
		c.old, err = loadFile(c.oldPath, false)
		if err != nil {
			// Unreachable: non-main load failures degrade to empty.
			c.old = map[string]entry{}
		}
		if len(c.old) > 0 {
			fmt.Printf("Loaded %d entries from old cache file: %s\n", len(c.old), c.oldPath)
		}
	}

	return c, nil
}

// detectOldCache returns the first api_cache_*.json sibling that is not
// the main file.
func detectOldCache(mainPath string) string {
	dir := filepath.Dir(mainPath)
	matches, err := filepath.Glob(filepath.Join(dir, "api_cache_*.json"))
	if err != nil {
		return ""
	}
	for _, m := range matches {
		if filepath.Base(m) != filepath.Base(mainPath) {
			return m
		}
	}

	return ""
}

// sweepTempFiles removes temp files left behind by interrupted saves.
func sweepTempFiles(mainPath string) {
	dir := filepath.Dir(mainPath)
	matches, err := filepath.Glob(filepath.Join(dir, ".api_cache_tmp_*.json"))
	if err != nil {
		return
	}
	for _, m := range matches {
		os.Remove(m)
	}
}

func loadFile(path string, isMain bool) (map[string]entry, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]entry{}, nil
	}
	if err == nil {
		var entries map[string]entry
		err = json.Unmarshal(raw, &entries)
		if err == nil {
			return entries, nil
		}
	}

	if !isMain {
		fmt.Printf("Warning: Old cache file %s is corrupted or unreadable: %v\n", path, err)
		fmt.Println("Continuing without old cache entries.")

		return map[string]entry{}, nil
	}

	backup := fmt.Sprintf("%s.corrupted.%s.bak", path, time.Now().Format("20060102_150405"))
	if copyErr := copyFile(path, backup); copyErr != nil {
		fmt.Println("\nERROR: Cache file is corrupted AND backup failed!")
		fmt.Printf("Cache error: %v\n", err)
		fmt.Printf("Backup error: %v\n", copyErr)
		fmt.Printf("\nManually backup %s before proceeding!\n", path)
	} else {
		fmt.Println("\nERROR: Cache file is corrupted or unreadable.")
		fmt.Printf("Error details: %v\n", err)
		fmt.Printf("\nA backup has been saved to: %s\n", backup)
		fmt.Println("\nTo prevent data loss, execution has been stopped.")
		fmt.Println("\nRecommended actions:")
		fmt.Println("1. Try to recover the cache file manually (it may be fixable)")
		fmt.Println("2. If recovery fails, rename or delete the corrupted file to start fresh")
		fmt.Println("3. Responses can be rebuilt from run log files")
	}

	return nil, fmt.Errorf("%w: %s", ErrCorrupt, path)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, 0o644)
}

// Key hashes the request parameters into the cache key.
func Key(stableContext, query, model string, maxTokens int) string {
	request := fmt.Sprintf("%s\n\n---QUERY---\n\n%s\n\n---MODEL---\n\n%s\n\n---MAX_TOKENS---\n\n%d",
		stableContext, query, model, maxTokens)
	sum := sha256.Sum256([]byte(request))

	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for key. Hits in the old cache are
// promoted into the main file before returning.
func (c *Cache) Get(key string) (string, bool) {
	if e, ok := c.main[key]; ok {
		return e.Response, true
	}
	if e, ok := c.old[key]; ok {
		c.main[key] = entry{Response: e.Response}
		c.save()

		return e.Response, true
	}

	return "", false
}

// Set stores a response under key. An existing entry is left untouched:
// the first stored response for a request wins.
func (c *Cache) Set(key, response string) {
	if _, ok := c.main[key]; ok {
		return
	}
	c.main[key] = entry{Response: response}
	c.save()
}

// Remove deletes the entry for key from the main cache. It reports
// whether an entry existed.
func (c *Cache) Remove(key string) bool {
	if _, ok := c.main[key]; !ok {
		return false
	}
	delete(c.main, key)
	c.save()

	return true
}

// Len returns the number of entries in the main cache.
func (c *Cache) Len() int {
	return len(c.main)
}

// save writes the main cache atomically: temp file, then rename. A failed
// save is reported but does not abort the run; the in-memory cache still
// serves the session.
func (c *Cache) save() {
	delay := saveBaseDelay
	var lastErr error

	for attempt := 0; attempt < saveRetries; attempt++ {
		if lastErr = c.trySave(); lastErr == nil {
			return
		}
		if attempt < saveRetries-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}

	fmt.Printf("Warning: Failed to save cache to %s: %v\n", c.path, lastErr)
}

func (c *Cache) trySave() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	raw, err := json.MarshalIndent(c.main, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".api_cache_tmp_*.json")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("replace cache file: %w", err)
	}

	return nil
}
