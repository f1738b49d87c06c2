package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// maxToolTurns caps a tool conversation. A model that is still browsing
// after this many rounds is looping, not converging.
const maxToolTurns = 25

// ToolHandler executes one tool call. Non-string results are JSON
// encoded before being shown to the model.
type ToolHandler func(input json.RawMessage) (any, error)

// ToolConversation describes a tool-assisted query: an opening prompt,
// the tools on offer and their handlers.
type ToolConversation struct {
	ContextBlocks []string
	Prompt        string
	Tools         []Tool
	Handlers      map[string]ToolHandler
	MaxTokens     int
}

// RunToolConversation drives a conversation until the model stops
// calling tools, and returns the concatenated assistant text. Tool
// results are cheap and local, so turns are not cached; transient API
// failures are retried per step.
func (e *Engine) RunToolConversation(ctx context.Context, conv ToolConversation) (string, error) {
	contextBlocks := ConsolidateBlocks(conv.ContextBlocks)
	messages := []Message{{Role: RoleUser, Text: conv.Prompt}}

	var texts []string
	for turnNo := 0; turnNo < maxToolTurns; turnNo++ {
		var turn *Turn
		err := withRetry(ctx, func() error {
			var stepErr error
			turn, stepErr = e.primary.StepTools(ctx, ToolRequest{
				ContextBlocks: contextBlocks,
				Messages:      messages,
				Tools:         conv.Tools,
				MaxTokens:     conv.MaxTokens,
			})

			return stepErr
		})
		if err != nil {
			return "", fmt.Errorf("tool conversation step %d: %w", turnNo+1, err)
		}

		if turn.Text != "" {
			texts = append(texts, turn.Text)
		}
		if len(turn.ToolCalls) == 0 {
			final := strings.Join(texts, "\n")
			e.log.Record(strings.Join(contextBlocks, "\n\n"), conv.Prompt, final, turn.CacheCreated, turn.CacheRead, false)

			return final, nil
		}

		messages = append(messages, Message{
			Role:      RoleAssistant,
			Text:      turn.Text,
			ToolCalls: turn.ToolCalls,
		})
		messages = append(messages, Message{
			Role:        RoleUser,
			ToolResults: runToolCalls(turn.ToolCalls, conv.Handlers),
		})
	}

	return "", fmt.Errorf("tool conversation did not finish within %d turns", maxToolTurns)
}

func runToolCalls(calls []ToolCall, handlers map[string]ToolHandler) []ToolResult {
	results := make([]ToolResult, 0, len(calls))
	for _, call := range calls {
		handler, ok := handlers[call.Name]
		if !ok {
			results = append(results, ToolResult{
				ToolUseID: call.ID,
				Content:   fmt.Sprintf("Unknown tool: %s", call.Name),
				IsError:   true,
			})

			continue
		}

		value, err := handler(call.Input)
		if err != nil {
			results = append(results, ToolResult{
				ToolUseID: call.ID,
				Content:   err.Error(),
				IsError:   true,
			})

			continue
		}
		results = append(results, ToolResult{
			ToolUseID: call.ID,
			Content:   encodeToolValue(value),
		})
	}

	return results
}

func encodeToolValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}

	return string(raw)
}
