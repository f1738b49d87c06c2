package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/Sumatoshi-tech/retrospect/internal/llm"
	"github.com/Sumatoshi-tech/retrospect/internal/snapdiff"
)

// SnapshotContext backs the tool handlers for one major transition. Diff
// data is precomputed; full file contents are extracted from the zips
// only when the model actually asks for them.
type SnapshotContext struct {
	diff       *snapdiff.Diff
	oldZipPath string
	newZipPath string
	binaryExt  []string

	diffIndex   map[string]snapdiff.FileDiff
	oldContents map[string]string
	newContents map[string]string
}

// NewSnapshotContext builds a context over a computed transition diff.
func NewSnapshotContext(diff *snapdiff.Diff, oldZipPath, newZipPath string, binaryExtensions []string) *SnapshotContext {
	index := make(map[string]snapdiff.FileDiff, len(diff.Modified))
	for _, fd := range diff.Modified {
		index[fd.Path] = fd
	}

	return &SnapshotContext{
		diff:       diff,
		oldZipPath: oldZipPath,
		newZipPath: newZipPath,
		binaryExt:  binaryExtensions,
		diffIndex:  index,
	}
}

// ChangeSummary returns the transition statistics shown to the model
// before it starts exploring.
func (c *SnapshotContext) ChangeSummary() map[string]any {
	return map[string]any{
		"files_added":                 len(c.diff.Added),
		"files_removed":               len(c.diff.Removed),
		"files_modified":              len(c.diff.Modified),
		"files_moved":                 len(c.diff.Moved),
		"files_unchanged":             len(c.diff.Unchanged),
		"total_diff_lines":            c.diff.TotalDiffLines,
		"total_lines_in_new_snapshot": c.diff.TotalLinesInNew,
	}
}

func (c *SnapshotContext) loadContents(snapshot string) (map[string]string, error) {
	if snapshot == "old" {
		if c.oldContents == nil {
			_, contents, err := snapdiff.ReadSnapshot(c.oldZipPath, c.binaryExt)
			if err != nil {
				return nil, fmt.Errorf("read old snapshot: %w", err)
			}
			c.oldContents = contents
		}

		return c.oldContents, nil
	}
	if c.newContents == nil {
		_, contents, err := snapdiff.ReadSnapshot(c.newZipPath, c.binaryExt)
		if err != nil {
			return nil, fmt.Errorf("read new snapshot: %w", err)
		}
		c.newContents = contents
	}

	return c.newContents, nil
}

// Tools returns the tool definitions for exploring a transition.
func (c *SnapshotContext) Tools() []llm.Tool {
	emptySchema := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
	snapshotProp := map[string]any{
		"type":        "string",
		"enum":        []string{"old", "new"},
		"description": "Which snapshot to read from.",
	}

	return []llm.Tool{
		{
			Name: "get_change_summary",
			Description: "Get a high-level statistical summary of this transition: " +
				"counts of files added, removed, modified, moved, and total diff lines.",
			InputSchema: emptySchema,
		},
		{
			Name:        "list_files_added",
			Description: "List all file paths that were added in this transition.",
			InputSchema: emptySchema,
		},
		{
			Name:        "list_files_removed",
			Description: "List all file paths that were removed in this transition.",
			InputSchema: emptySchema,
		},
		{
			Name:        "list_files_moved",
			Description: "List all files that were moved/renamed, showing old and new paths.",
			InputSchema: emptySchema,
		},
		{
			Name: "list_files_modified",
			Description: "List all modified file paths with the number of diff lines for each. " +
				"Use this to decide which files to inspect in detail.",
			InputSchema: emptySchema,
		},
		{
			Name: "get_diff",
			Description: "Get the full unified diff for a specific modified file. " +
				"No truncation is applied; you see the complete diff.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{
						"type":        "string",
						"description": "The relative file path (as shown in list_files_modified).",
					},
				},
				"required": []string{"file_path"},
			},
		},
		{
			Name: "get_file_content",
			Description: "Read the full content of a file from either the old or new snapshot. " +
				"Useful for understanding context around a diff, or reading newly added files.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"snapshot": snapshotProp,
					"file_path": map[string]any{
						"type":        "string",
						"description": "The relative file path to read.",
					},
				},
				"required": []string{"snapshot", "file_path"},
			},
		},
		{
			Name: "get_status_docs",
			Description: "Get the content of developer status/documentation files (STATUS.md, " +
				"CHANGELOG.md, TODO.md, etc.) from the new snapshot, plus their diffs " +
				"if they were modified.",
			InputSchema: emptySchema,
		},
		{
			Name:        "list_all_files",
			Description: "Get the complete file listing for either the old or new snapshot.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"snapshot": map[string]any{
						"type":        "string",
						"enum":        []string{"old", "new"},
						"description": "Which snapshot's file listing to return.",
					},
				},
				"required": []string{"snapshot"},
			},
		},
	}
}

// Handlers returns the tool name to handler mapping.
func (c *SnapshotContext) Handlers() map[string]llm.ToolHandler {
	return map[string]llm.ToolHandler{
		"get_change_summary": func(json.RawMessage) (any, error) {
			return c.ChangeSummary(), nil
		},
		"list_files_added": func(json.RawMessage) (any, error) {
			return c.diff.Added, nil
		},
		"list_files_removed": func(json.RawMessage) (any, error) {
			return c.diff.Removed, nil
		},
		"list_files_moved": func(json.RawMessage) (any, error) {
			moves := make([]map[string]string, 0, len(c.diff.Moved))
			for _, mv := range c.diff.Moved {
				moves = append(moves, map[string]string{"old_path": mv.OldPath, "new_path": mv.NewPath})
			}

			return moves, nil
		},
		"list_files_modified": func(json.RawMessage) (any, error) {
			entries := make([]map[string]any, 0, len(c.diff.Modified))
			for _, fd := range c.diff.Modified {
				entries = append(entries, map[string]any{"path": fd.Path, "diff_lines": fd.LineCount})
			}

			return entries, nil
		},
		"get_diff": func(input json.RawMessage) (any, error) {
			var args struct {
				FilePath string `json:"file_path"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode get_diff input: %w", err)
			}
			if fd, ok := c.diffIndex[args.FilePath]; ok {
				return fd.Text, nil
			}

			return fmt.Sprintf("No diff found for '%s'. Use list_files_modified to see available paths.", args.FilePath), nil
		},
		"get_file_content": func(input json.RawMessage) (any, error) {
			var args struct {
				Snapshot string `json:"snapshot"`
				FilePath string `json:"file_path"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode get_file_content input: %w", err)
			}
			contents, err := c.loadContents(args.Snapshot)
			if err != nil {
				return nil, err
			}
			if content, ok := contents[args.FilePath]; ok {
				return content, nil
			}

			return fmt.Sprintf("File '%s' not found in %s snapshot.", args.FilePath, args.Snapshot), nil
		},
		"get_status_docs": func(json.RawMessage) (any, error) {
			result := map[string]any{}
			if len(c.diff.StatusDocs) > 0 {
				result["status_docs"] = c.diff.StatusDocs
			}
			if len(c.diff.StatusDocDiffs) > 0 {
				docDiffs := make(map[string]string, len(c.diff.StatusDocDiffs))
				for _, fd := range c.diff.StatusDocDiffs {
					docDiffs[fd.Path] = fd.Text
				}
				result["status_doc_diffs"] = docDiffs
			}
			if len(result) == 0 {
				result["message"] = "No status/documentation files found in this transition."
			}

			return result, nil
		},
		"list_all_files": func(input json.RawMessage) (any, error) {
			var args struct {
				Snapshot string `json:"snapshot"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode list_all_files input: %w", err)
			}
			if args.Snapshot == "old" {
				return c.diff.OldFileListing, nil
			}

			return c.diff.NewFileListing, nil
		},
	}
}
