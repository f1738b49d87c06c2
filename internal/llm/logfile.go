package llm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// logPathLimit bounds the search for an unused log file name.
const logPathLimit = 10000

// RunLog appends every model exchange of a run to one JSON log file so
// responses survive even if the cache file is lost.
type RunLog struct {
	path string
}

// cachedMarker tags log entries served from the response cache.
const cachedMarker = "CACHED"

// OpenRunLog picks the first unused log file named <stem>NNNN.json in
// dir and returns a log writing to it. The file itself is created on the
// first Record call.
func OpenRunLog(dir, stem string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	for n := 0; n < logPathLimit; n++ {
		path := filepath.Join(dir, fmt.Sprintf("%s%04d.json", stem, n))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return &RunLog{path: path}, nil
		}
	}

	return nil, fmt.Errorf("no free log file name for stem %q in %s", stem, dir)
}

// Path returns the log file path.
func (l *RunLog) Path() string {
	return l.path
}

// Record appends one exchange. Entries are positional arrays so the log
// stays diffable: timestamp, stable context, prompt, result, cache
// creation tokens, cache read tokens, and a marker for cache hits.
func (l *RunLog) Record(stableContext, prompt, result string, cacheCreated, cacheRead int64, cached bool) {
	if l == nil {
		return
	}

	entry := []any{
		time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		stableContext,
		prompt,
		result,
		cacheCreated,
		cacheRead,
	}
	if cached {
		entry = append(entry, cachedMarker)
	}

	raw, err := json.MarshalIndent(entry, "", "    ")
	if err != nil {
		fmt.Printf("Warning: Could not encode log entry: %v\n", err)

		return
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Printf("Warning: Could not open log file %s: %v\n", l.path, err)

		return
	}
	defer f.Close()

	if _, err := f.Write(append(raw, '\n')); err != nil {
		fmt.Printf("Warning: Could not write log file %s: %v\n", l.path, err)
	}
}
