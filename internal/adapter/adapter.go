// Package adapter defines the chat adapter contract (C1): a normalized
// surface over per-vendor LLM SDKs so the trial runner and tool-calling
// engine never see provider-specific wire shapes.
package adapter

import "context"

// Role is a conversation message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation passed to an Adapter.
type Message struct {
	Role    Role
	Content string
}

// ToolDefinition describes one tool an Adapter may offer the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  string // JSON Schema
}

// ToolChoice controls whether/how a model is nudged to call tools.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatRequest is the normalized request shape (spec.md §4.1).
type ChatRequest struct {
	Model           string
	Messages        []Message
	Temperature     float64
	MaxTokens       int
	Tools           []ToolDefinition
	ToolChoice      ToolChoice
	ReasoningEffort string // vendor-specific hint, e.g. "low"/"medium"/"high"
}

// ToolCall is a model's request to invoke a named tool with JSON arguments.
type ToolCall struct {
	Name      string
	Arguments string
}

// ChatResponse is the normalized response shape (spec.md §4.1).
type ChatResponse struct {
	Text      string
	TokensIn  int
	TokensOut int
	ToolCalls []ToolCall
	Raw       string // opaque provider response, retained for debugging
}

// Error wraps a provider error with an HTTP-like status where the vendor
// SDK exposes one. Adapters never retry internally — spec.md §4.1 assigns
// retry policy to callers.
type Error struct {
	Vendor     string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Vendor + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Vendor + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Adapter is the capability set every vendor implementation exposes.
type Adapter interface {
	ListModels(ctx context.Context) ([]string, error)
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
