package llm

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMessages is the slice of the Anthropic SDK the provider uses.
type anthropicMessages interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// anthropicProvider adapts the Anthropic Messages API. Context blocks
// become system blocks with ephemeral cache markers so repeated calls
// over the same project context hit the prompt cache.
type anthropicProvider struct {
	messages anthropicMessages
	model    string
}

func newAnthropicProvider(apiKey, model string) *anthropicProvider {
	client := sdk.NewClient(option.WithAPIKey(apiKey))

	return &anthropicProvider{messages: &client.Messages, model: model}
}

// Model returns the platform model identifier.
func (p *anthropicProvider) Model() string {
	return p.model
}

// Complete runs a single-turn completion.
func (p *anthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	params := sdk.MessageNewParams{
		MaxTokens: int64(req.MaxTokens),
		Model:     sdk.Model(p.model),
		Messages:  []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.Query))},
		System:    encodeSystemBlocks(req.ContextBlocks),
	}

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	turn := translateAnthropicMessage(msg)

	return &Response{
		Text:         turn.Text,
		StopReason:   turn.StopReason,
		CacheCreated: turn.CacheCreated,
		CacheRead:    turn.CacheRead,
	}, nil
}

// StepTools runs one step of a tool-assisted conversation.
func (p *anthropicProvider) StepTools(ctx context.Context, req ToolRequest) (*Turn, error) {
	msgs, err := encodeAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(req.MaxTokens),
		Model:     sdk.Model(p.model),
		Messages:  msgs,
		System:    encodeSystemBlocks(req.ContextBlocks),
		Tools:     encodeAnthropicTools(req.Tools),
	}

	msg, err := p.messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	return translateAnthropicMessage(msg), nil
}

// encodeSystemBlocks turns context blocks into system text blocks, each
// carrying an ephemeral cache marker.
func encodeSystemBlocks(blocks []string) []sdk.TextBlockParam {
	system := make([]sdk.TextBlockParam, 0, len(blocks))
	for _, block := range blocks {
		if block == "" {
			continue
		}
		system = append(system, sdk.TextBlockParam{
			Text:         block,
			CacheControl: sdk.NewCacheControlEphemeralParam(),
		})
	}

	return system
}

func encodeAnthropicMessages(msgs []Message) ([]sdk.MessageParam, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls)+len(m.ToolResults))
		for _, r := range m.ToolResults {
			blocks = append(blocks, sdk.NewToolResultBlock(r.ToolUseID, r.Content, r.IsError))
		}
		if m.Text != "" {
			blocks = append(blocks, sdk.NewTextBlock(m.Text))
		}
		for _, call := range m.ToolCalls {
			blocks = append(blocks, sdk.NewToolUseBlock(call.ID, call.Input, call.Name))
		}
		if len(blocks) == 0 {
			continue
		}

		switch m.Role {
		case RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(blocks...))
		case RoleAssistant:
			conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}

	return conversation, nil
}

func encodeAnthropicTools(tools []Tool) []sdk.ToolUnionParam {
	list := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		schema := make(map[string]any, len(t.InputSchema))
		for k, v := range t.InputSchema {
			schema[k] = v
		}
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: schema}, t.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(t.Description)
		}
		list = append(list, u)
	}

	return list
}

func translateAnthropicMessage(msg *sdk.Message) *Turn {
	var texts []string
	var calls []ToolCall
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			texts = append(texts, block.Text)
		case "tool_use":
			calls = append(calls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	return &Turn{
		Text:         strings.Join(texts, "\n"),
		ToolCalls:    calls,
		StopReason:   string(msg.StopReason),
		CacheCreated: msg.Usage.CacheCreationInputTokens,
		CacheRead:    msg.Usage.CacheReadInputTokens,
	}
}
