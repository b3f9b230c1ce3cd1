package aisdk

import (
	jsonschema "github.com/swaggest/jsonschema-go"
)

// ChatTool represents a tool in the format expected by chat completion APIs.
type ChatTool struct {
	Type     string           `json:"type"` // always "function"
	Function ChatToolFunction `json:"function"`
}

// ChatToolFunction represents the function definition for chat APIs.
type ChatToolFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}
