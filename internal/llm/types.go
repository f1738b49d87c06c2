// Package llm talks to hosted language models. A Provider adapts one
// platform SDK to a uniform request shape; the Engine layers response
// caching, per-model retries, fallback models, JSON extraction and run
// logging on top of any Provider.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Request is a single-turn completion request. ContextBlocks carry the
// large stable prompt sections eligible for provider-side prompt caching;
// Query is the per-call question.
type Request struct {
	ContextBlocks []string
	Query         string
	MaxTokens     int
}

// Response is the provider-neutral completion result.
type Response struct {
	Text         string
	StopReason   string
	CacheCreated int64
	CacheRead    int64
}

// Conversation roles for tool-assisted exchanges.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one provider-neutral conversation turn. Assistant turns may
// carry tool calls; user turns may carry tool results.
type Message struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// ToolCall is a model request to run one tool.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult is the outcome of one tool call, sent back to the model.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

// Tool describes a callable tool offered to the model. InputSchema is a
// JSON Schema object document.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ToolRequest is one step of a tool-assisted conversation: the full
// transcript so far plus the tools the model may call.
type ToolRequest struct {
	ContextBlocks []string
	Messages      []Message
	Tools         []Tool
	MaxTokens     int
}

// Turn is the model output for one tool conversation step.
type Turn struct {
	Text         string
	ToolCalls    []ToolCall
	StopReason   string
	CacheCreated int64
	CacheRead    int64
}

// ModelError reports that every model in the chain failed to produce a
// usable response. Attempts counts every completion call made across
// the chain.
type ModelError struct {
	Models   []string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	msg := fmt.Sprintf("all models failed after %d attempts: %s", e.Attempts, strings.Join(e.Models, ", "))
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}

	return msg
}

// Unwrap exposes the last underlying failure.
func (e *ModelError) Unwrap() error {
	return e.Last
}

// MissingKeyError reports that the environment variable holding a
// platform API key is unset.
type MissingKeyError struct {
	Platform string
	EnvVar   string
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s not set: required for %s models", e.EnvVar, e.Platform)
}
