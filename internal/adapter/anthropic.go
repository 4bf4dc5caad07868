package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicModels is the closed set of models this adapter answers
// ListModels with; the SDK has no models.list endpoint worth trusting for
// benchmark purposes, so the set is maintained here by hand.
var anthropicModels = []string{
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-3-5-haiku-20241022",
}

// AnthropicAdapter implements Adapter over the official Anthropic SDK.
type AnthropicAdapter struct {
	client anthropic.Client
}

func NewAnthropicAdapter(apiKey string) *AnthropicAdapter {
	return &AnthropicAdapter{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (a *AnthropicAdapter) ListModels(_ context.Context) ([]string, error) {
	out := make([]string, len(anthropicModels))
	copy(out, anthropicModels)
	return out, nil
}

func (a *AnthropicAdapter) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
	}

	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params.Messages = messages

	if len(req.Tools) > 0 {
		tools, err := convertAnthropicTools(req.Tools)
		if err != nil {
			return ChatResponse{}, wrapAdapterError("anthropic", err)
		}
		params.Tools = tools
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return ChatResponse{}, wrapAdapterError("anthropic", err)
	}

	resp := ChatResponse{
		TokensIn:  int(msg.Usage.InputTokens),
		TokensOut: int(msg.Usage.OutputTokens),
	}
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			resp.Text += variant.Text
		case anthropic.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{Name: variant.Name, Arguments: string(args)})
		}
	}
	raw, _ := json.Marshal(msg)
	resp.Raw = string(raw)
	return resp, nil
}

func convertAnthropicTools(tools []ToolDefinition) ([]anthropic.ToolUnionParam, error) {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		var schema anthropic.ToolInputSchemaParam
		if err := json.Unmarshal([]byte(t.Parameters), &schema); err != nil {
			return nil, fmt.Errorf("tool %s: invalid parameters schema: %w", t.Name, err)
		}
		param := anthropic.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool == nil {
			return nil, fmt.Errorf("tool %s: missing tool definition after conversion", t.Name)
		}
		param.OfTool.Description = anthropic.String(t.Description)
		out = append(out, param)
	}
	return out, nil
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return 2048
	}
	return n
}

func wrapAdapterError(vendor string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &Error{Vendor: vendor, StatusCode: apiErr.StatusCode, Message: "request failed", Cause: err}
	}
	return &Error{Vendor: vendor, Message: "request failed", Cause: err}
}
