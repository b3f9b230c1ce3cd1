// Package agent provides the tool registry and typed tool execution used
// by the conversation loop. Tool handlers observe state changes as typed
// side effects instead of mutating anything above them.
package agent

import (
	"context"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/nudgyapp/companion/src/aisdk"
)

// Tool is the interface that all tools must implement.
type Tool interface {
	// GetType returns the tool type (always "function" for now)
	GetType() string

	// GetName returns the tool's name
	GetName() string

	// GetDescription returns the tool's description
	GetDescription() string

	// GetParameters returns the JSON schema for the tool's parameters
	GetParameters() *jsonschema.Schema

	// Execute runs the tool with the given parameters
	Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error)
}

// ToChatTool converts a Tool to the wire format for API requests.
func ToChatTool(tool Tool) *aisdk.ChatTool {
	return &aisdk.ChatTool{
		Type: tool.GetType(),
		Function: aisdk.ChatToolFunction{
			Name:        tool.GetName(),
			Description: tool.GetDescription(),
			Parameters:  tool.GetParameters(),
		},
	}
}

// ToChatTools converts a slice of Tools to wire format.
func ToChatTools(tools []Tool) []*aisdk.ChatTool {
	chatTools := make([]*aisdk.ChatTool, len(tools))
	for i, tool := range tools {
		chatTools[i] = ToChatTool(tool)
	}
	return chatTools
}
