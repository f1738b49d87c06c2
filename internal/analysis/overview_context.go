package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/Sumatoshi-tech/retrospect/internal/llm"
)

// OverviewContext backs the tool handlers for overview generation: the
// model reads individual unit narratives by index instead of receiving
// them all concatenated into one oversized prompt.
type OverviewContext struct {
	results []Result
}

// NewOverviewContext builds a context over completed unit results.
func NewOverviewContext(results []Result) *OverviewContext {
	return &OverviewContext{results: results}
}

// transitionEntry is the shape shown to the model per unit.
func (c *OverviewContext) transitionEntry(index int) map[string]any {
	r := c.results[index]

	return map[string]any{
		"index":           index,
		"tier":            string(r.Tier),
		"snapshot_labels": r.SnapshotLabels,
		"narrative":       r.Narrative,
	}
}

// Tools returns the tool definitions for browsing unit narratives.
func (c *OverviewContext) Tools() []llm.Tool {
	return []llm.Tool{
		{
			Name: "get_transition_summary",
			Description: "Get the analysis narrative for a specific transition by its index. " +
				"Use the transition list provided in the initial context to choose indices.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"index": map[string]any{
						"type":        "integer",
						"description": "The transition index (0-based, from the transition list).",
					},
				},
				"required": []string{"index"},
			},
		},
		{
			Name: "get_transition_range",
			Description: "Get the analysis narratives for a range of transitions. " +
				"More efficient than calling get_transition_summary repeatedly.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"start": map[string]any{
						"type":        "integer",
						"description": "Start index (inclusive, 0-based).",
					},
					"end": map[string]any{
						"type":        "integer",
						"description": "End index (inclusive, 0-based).",
					},
				},
				"required": []string{"start", "end"},
			},
		},
	}
}

// Handlers returns the tool name to handler mapping.
func (c *OverviewContext) Handlers() map[string]llm.ToolHandler {
	return map[string]llm.ToolHandler{
		"get_transition_summary": func(input json.RawMessage) (any, error) {
			var args struct {
				Index int `json:"index"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode get_transition_summary input: %w", err)
			}
			if args.Index < 0 || args.Index >= len(c.results) {
				return map[string]any{
					"error": fmt.Sprintf("Index %d out of range (0-%d)", args.Index, len(c.results)-1),
				}, nil
			}

			return c.transitionEntry(args.Index), nil
		},
		"get_transition_range": func(input json.RawMessage) (any, error) {
			var args struct {
				Start int `json:"start"`
				End   int `json:"end"`
			}
			if err := json.Unmarshal(input, &args); err != nil {
				return nil, fmt.Errorf("decode get_transition_range input: %w", err)
			}
			start := max(0, args.Start)
			end := min(args.End+1, len(c.results))

			entries := []map[string]any{}
			for i := start; i < end; i++ {
				entries = append(entries, c.transitionEntry(i))
			}

			return entries, nil
		},
	}
}
