package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiCompletions is the slice of the OpenAI SDK the provider uses.
type openaiCompletions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// openaiProvider adapts the OpenAI Chat Completions API. Context blocks
// are sent as a single system message; OpenAI caches long shared
// prefixes server-side without explicit markers, so no cache token
// accounting is surfaced here.
type openaiProvider struct {
	completions openaiCompletions
	model       string
}

func newOpenAIProvider(apiKey, model string) *openaiProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	return &openaiProvider{completions: &client.Chat.Completions, model: model}
}

// Model returns the platform model identifier.
func (p *openaiProvider) Model() string {
	return p.model
}

// Complete runs a single-turn completion.
func (p *openaiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system := strings.Join(nonEmptyBlocks(req.ContextBlocks), "\n\n"); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(req.Query))

	completion, err := p.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: response for model %s contains no choices", p.model)
	}
	choice := completion.Choices[0]

	return &Response{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}, nil
}

// StepTools runs one step of a tool-assisted conversation.
func (p *openaiProvider) StepTools(ctx context.Context, req ToolRequest) (*Turn, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 1+len(req.Messages))
	if system := strings.Join(nonEmptyBlocks(req.ContextBlocks), "\n\n"); system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	for _, m := range req.Messages {
		encoded, err := encodeOpenAIMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, encoded...)
	}

	completion, err := p.completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(p.model),
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Tools:               encodeOpenAITools(req.Tools),
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai: response for model %s contains no choices", p.model)
	}
	choice := completion.Choices[0]

	calls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, call := range choice.Message.ToolCalls {
		calls = append(calls, ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: json.RawMessage(call.Function.Arguments),
		})
	}

	return &Turn{
		Text:       choice.Message.Content,
		ToolCalls:  calls,
		StopReason: string(choice.FinishReason),
	}, nil
}

// encodeOpenAIMessage expands one neutral turn. Tool results become
// separate tool-role messages, which is how the Chat Completions API
// expects them.
func encodeOpenAIMessage(m Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	switch m.Role {
	case RoleUser:
		out := make([]openai.ChatCompletionMessageParamUnion, 0, 1+len(m.ToolResults))
		for _, r := range m.ToolResults {
			content := r.Content
			if r.IsError {
				content = "Error: " + content
			}
			out = append(out, openai.ToolMessage(content, r.ToolUseID))
		}
		if m.Text != "" {
			out = append(out, openai.UserMessage(m.Text))
		}

		return out, nil
	case RoleAssistant:
		assistant := openai.ChatCompletionAssistantMessageParam{}
		if m.Text != "" {
			assistant.Content.OfString = openai.String(m.Text)
		}
		for _, call := range m.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Name,
					Arguments: string(call.Input),
				},
			})
		}

		return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &assistant}}, nil
	default:
		return nil, fmt.Errorf("openai: unsupported message role %q", m.Role)
	}
}

func encodeOpenAITools(tools []Tool) []openai.ChatCompletionToolParam {
	list := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		list = append(list, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.InputSchema),
			},
		})
	}

	return list
}

func nonEmptyBlocks(blocks []string) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b != "" {
			out = append(out, b)
		}
	}

	return out
}
