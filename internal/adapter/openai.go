package adapter

import (
	"context"
	"encoding/json"

	openai "github.com/sashabaranov/go-openai"
)

var openaiModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"o3-mini",
}

// OpenAIAdapter implements Adapter over the sashabaranov/go-openai client.
type OpenAIAdapter struct {
	client *openai.Client
}

func NewOpenAIAdapter(apiKey string) *OpenAIAdapter {
	return &OpenAIAdapter{client: openai.NewClient(apiKey)}
}

func (a *OpenAIAdapter) ListModels(_ context.Context) ([]string, error) {
	out := make([]string, len(openaiModels))
	copy(out, openaiModels)
	return out, nil
}

func (a *OpenAIAdapter) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = convertOpenAITools(req.Tools)
		chatReq.ToolChoice = "auto"
	}

	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return ChatResponse{}, &Error{Vendor: "openai", Message: "request failed", Cause: err}
	}
	if len(resp.Choices) == 0 {
		return ChatResponse{}, &Error{Vendor: "openai", Message: "empty choices in response"}
	}

	choice := resp.Choices[0]
	out := ChatResponse{
		Text:      choice.Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	raw, _ := json.Marshal(resp)
	out.Raw = string(raw)
	return out, nil
}

func convertOpenAITools(tools []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		var params map[string]any
		_ = json.Unmarshal([]byte(t.Parameters), &params)
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
