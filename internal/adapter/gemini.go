package adapter

import (
	"context"
	"encoding/json"

	"google.golang.org/genai"
)

var geminiModels = []string{
	"gemini-2.0-flash",
	"gemini-2.5-pro",
}

// GeminiAdapter implements Adapter over google.golang.org/genai, the Go
// client for Google's Gemini API.
type GeminiAdapter struct {
	client *genai.Client
}

func NewGeminiAdapter(ctx context.Context, apiKey string) (*GeminiAdapter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &Error{Vendor: "google", Message: "failed to create client", Cause: err}
	}
	return &GeminiAdapter{client: client}, nil
}

func (a *GeminiAdapter) ListModels(_ context.Context) ([]string, error) {
	out := make([]string, len(geminiModels))
	copy(out, geminiModels)
	return out, nil
}

func (a *GeminiAdapter) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	config := &genai.GenerateContentConfig{}
	var contents []*genai.Content

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: m.Content}}}
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if len(req.Tools) > 0 {
		config.Tools = convertGeminiTools(req.Tools)
	}

	resp, err := a.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return ChatResponse{}, &Error{Vendor: "google", Message: "request failed", Cause: err}
	}

	out := ChatResponse{}
	if resp.UsageMetadata != nil {
		out.TokensIn = int(resp.UsageMetadata.PromptTokenCount)
		out.TokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				out.Text += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				out.ToolCalls = append(out.ToolCalls, ToolCall{Name: part.FunctionCall.Name, Arguments: string(args)})
			}
		}
	}
	raw, _ := json.Marshal(resp)
	out.Raw = string(raw)
	return out, nil
}

func convertGeminiTools(tools []ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema genai.Schema
		_ = json.Unmarshal([]byte(t.Parameters), &schema)
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  &schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
