package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	jsonschema "github.com/swaggest/jsonschema-go"

	"github.com/nudgyapp/companion/src/aisdk"
)

// GenericToolHandler is a type-safe handler function. The input struct is
// the single place tool arguments are parsed and validated; handlers never
// see raw JSON.
type GenericToolHandler[TInput any] func(ctx context.Context, input TInput) (*aisdk.ToolResponse, error)

// GenericTool is a tool whose arguments are decoded once into a typed
// struct at the parsing boundary. The parameter schema is reflected from
// the input type.
type GenericTool[TInput any] struct {
	Type        string
	Name        string
	Description string
	Schema      *jsonschema.Schema
	Handler     GenericToolHandler[TInput]
}

// GetType returns the tool type (always "function" for now).
func (gt *GenericTool[TInput]) GetType() string { return gt.Type }

// GetName returns the tool's name.
func (gt *GenericTool[TInput]) GetName() string { return gt.Name }

// GetDescription returns the tool's description.
func (gt *GenericTool[TInput]) GetDescription() string { return gt.Description }

// GetParameters returns the JSON schema for the tool's parameters.
func (gt *GenericTool[TInput]) GetParameters() *jsonschema.Schema { return gt.Schema }

// Execute decodes and validates the call's arguments, then runs the
// handler. Argument problems are reported back to the model as the tool
// result, never as an error to the caller.
func (gt *GenericTool[TInput]) Execute(ctx context.Context, call *aisdk.ToolCall) (*aisdk.ToolResponse, error) {
	var input TInput
	if err := json.Unmarshal(call.RawArguments(), &input); err != nil {
		return &aisdk.ToolResponse{
			ToolCallID: call.ID,
			ResultText: fmt.Sprintf("I couldn't read the arguments for %s: %v", gt.Name, err),
			IsError:    true,
		}, nil
	}

	if err := gt.validateRequired(input); err != nil {
		return &aisdk.ToolResponse{
			ToolCallID: call.ID,
			ResultText: fmt.Sprintf("Invalid arguments for %s: %v", gt.Name, err),
			IsError:    true,
		}, nil
	}

	resp, err := gt.Handler(ctx, input)
	if err != nil {
		return &aisdk.ToolResponse{
			ToolCallID: call.ID,
			ResultText: fmt.Sprintf("The %s tool failed: %v", gt.Name, err),
			IsError:    true,
		}, nil
	}
	resp.ToolCallID = call.ID
	return resp, nil
}

// validateRequired checks that required fields are not zero.
func (gt *GenericTool[TInput]) validateRequired(input TInput) error {
	if gt.Schema == nil || gt.Schema.Required == nil {
		return nil
	}

	val := reflect.ValueOf(input)
	typ := val.Type()

	for _, requiredField := range gt.Schema.Required {
		found := false
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			jsonTag := field.Tag.Get("json")
			fieldName := strings.Split(jsonTag, ",")[0]

			if fieldName == requiredField {
				found = true
				if val.Field(i).IsZero() {
					return fmt.Errorf("required field '%s' is missing", requiredField)
				}
				break
			}
		}
		if !found {
			return fmt.Errorf("required field '%s' not found in struct", requiredField)
		}
	}
	return nil
}

// NewGenericTool creates a tool with a schema reflected from TInput.
func NewGenericTool[TInput any](name, description string, handler GenericToolHandler[TInput]) (Tool, error) {
	var input TInput
	inputType := reflect.TypeOf(input)
	if inputType.Kind() == reflect.Ptr {
		inputType = inputType.Elem()
	}
	if inputType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tool input type must be a struct, got %s", inputType.Kind())
	}

	reflector := jsonschema.Reflector{}
	schema, err := reflector.Reflect(input)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	return &GenericTool[TInput]{
		Type:        "function",
		Name:        name,
		Description: description,
		Schema:      &schema,
		Handler:     handler,
	}, nil
}
