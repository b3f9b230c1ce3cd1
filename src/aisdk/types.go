// Package aisdk defines the chat-completion wire types and streaming
// helpers shared by the gateway, the tool loop, and the fallback chain.
package aisdk

import (
	"context"
	"encoding/json"
	"time"
)

// Message roles used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name identifies the function for tool responses.
	Name string `json:"name,omitempty"`
	// ToolCallID references the originating call for tool responses.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// ToolCalls contains function calls requested by the assistant.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// CreatedAt is local bookkeeping, never sent on the wire.
	CreatedAt time.Time `json:"-"`
}

// ToolCall represents a function call request from the model (OpenAI format).
type ToolCall struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"` // always "function"
	// Index keys argument fragments in streaming deltas. Absent on
	// non-streaming responses.
	Index    *int         `json:"index,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolResponse is the result of executing a single tool call locally.
// ResultText is written back to the model as a tool message; SideEffects
// are typed observations handed to the caller, never applied directly.
type ToolResponse struct {
	ToolCallID  string
	ResultText  string
	SideEffects []SideEffect
	IsError     bool
}

// ToolExecutor is a function that executes a tool call.
type ToolExecutor func(ctx context.Context, call *ToolCall) (*ToolResponse, error)

// Tool-choice policies accepted by the chat completions endpoint.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceNone     = "none"
	ToolChoiceRequired = "required"
)

// ChatCompletionRequest represents a request to the chat completions endpoint.
type ChatCompletionRequest struct {
	Model       string      `json:"model"`
	Messages    []*Message  `json:"messages"`
	Temperature *float64    `json:"temperature,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Stream      bool        `json:"stream,omitempty"`
	Tools       []*ChatTool `json:"tools,omitempty"`
	ToolChoice  string      `json:"tool_choice,omitempty"`
}

// ChatCompletionResponse represents a response from the chat completions endpoint.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a single completion choice.
type Choice struct {
	Index        int      `json:"index"`
	Message      Message  `json:"message"`
	FinishReason string   `json:"finish_reason"`
	Delta        *Message `json:"delta,omitempty"` // streaming only
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

// Error represents an API error body.
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// ErrorResponse wraps an error from the API.
type ErrorResponse struct {
	Error Error `json:"error"`
}

// FirstMessage returns the message of the first choice, or nil.
func (r *ChatCompletionResponse) FirstMessage() *Message {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}

// RawArguments parses the call's argument string, defaulting to an empty
// object when the model sent nothing.
func (c *ToolCall) RawArguments() json.RawMessage {
	if c.Function.Arguments == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(c.Function.Arguments)
}

// StreamHandler receives the accumulated assistant text after every
// content delta.
type StreamHandler func(accumulated string)

// ModelClient is the surface the tool loop needs from a chat backend.
type ModelClient interface {
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
	// CreateChatCompletionStream performs the same call over SSE,
	// invoking onPartial for every content delta, and returns a response
	// identical in shape to the non-streaming path.
	CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, onPartial StreamHandler) (*ChatCompletionResponse, error)
}
