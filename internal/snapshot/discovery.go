package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Info describes one snapshot archive on disk.
type Info struct {
	// Path is the full path to the zip file.
	Path string
	// Label is the raw suffix, used in human-facing output ("20250923b").
	Label string
	// Filename is the base name of the zip file.
	Filename string
	// Key orders this snapshot relative to its siblings.
	Key Key
}

// zipExt is matched case-insensitively on candidate files.
const zipExt = ".zip"

// extractSuffix returns the suffix of filename when it has the form
// <project>_<suffix>.zip with a case-insensitive project match.
func extractSuffix(filename, project string) (string, bool) {
	if !strings.HasSuffix(strings.ToLower(filename), zipExt) {
		return "", false
	}
	stem := filename[:len(filename)-len(zipExt)]
	if len(stem) <= len(project)+1 {
		return "", false
	}
	if !strings.EqualFold(stem[:len(project)], project) {
		return "", false
	}
	if stem[len(project)] != '_' {
		return "", false
	}

	return stem[len(project)+1:], true
}

// Discover finds and orders every snapshot of project under dir. It fails
// when the directory is missing, when any filename matches the project but
// carries a suffix no convention can parse, or when fewer than two
// snapshots remain. A partial history cannot be silently analyzed, so the
// unparseable case is a hard error listing every offender.
func Discover(dir, project string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read zip directory: %w", err)
	}

	var snapshots []Info
	var unparseable []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		suffix, ok := extractSuffix(entry.Name(), project)
		if !ok {
			continue
		}
		key, ok := ParseSuffix(suffix)
		if !ok {
			unparseable = append(unparseable, entry.Name())
			continue
		}
		snapshots = append(snapshots, Info{
			Path:     filepath.Join(dir, entry.Name()),
			Label:    suffix,
			Filename: entry.Name(),
			Key:      key,
		})
	}

	if len(unparseable) > 0 {
		sort.Strings(unparseable)

		return nil, fmt.Errorf("found %d matching zip file(s) with unparseable suffixes:\n  %s",
			len(unparseable), strings.Join(unparseable, "\n  "))
	}
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("need at least 2 snapshots for project %q, found %d in %s",
			project, len(snapshots), dir)
	}

	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Key.Less(snapshots[j].Key)
	})

	return snapshots, nil
}

// Project summarizes one detected project in a listing.
type Project struct {
	Name  string
	Count int
	// TotalBytes sums the sizes of the project's zip files.
	TotalBytes int64
}

// ListProjects scans dir for zip files and groups them by project name.
// The project boundary in a filename is found by trying progressively
// shorter prefixes: the longest prefix whose remaining suffix parses wins.
// Names are lowercased for grouping and only projects with two or more
// snapshots are reported, sorted by name.
func ListProjects(dir string) ([]Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read zip directory: %w", err)
	}

	counts := make(map[string]int)
	sizes := make(map[string]int64)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(strings.ToLower(name), zipExt) {
			continue
		}
		stem := name[:len(name)-len(zipExt)]

		lastIdx := len(stem)
		for {
			idx := strings.LastIndex(stem[:lastIdx], "_")
			if idx <= 0 {
				break
			}
			if _, ok := ParseSuffix(stem[idx+1:]); ok {
				project := strings.ToLower(stem[:idx])
				counts[project]++
				if info, err := entry.Info(); err == nil {
					sizes[project] += info.Size()
				}
				break
			}
			lastIdx = idx
		}
	}

	projects := make([]Project, 0, len(counts))
	for name, count := range counts {
		if count >= 2 {
			projects = append(projects, Project{Name: name, Count: count, TotalBytes: sizes[name]})
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })

	return projects, nil
}
