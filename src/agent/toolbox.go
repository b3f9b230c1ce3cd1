package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/nudgyapp/companion/src/aisdk"
)

// Toolbox dispatches tool calls to registered handlers. An unknown
// function name produces a result explaining the tool is unsupported;
// it is reported back to the model, not raised to the caller.
type Toolbox struct {
	tools  map[string]Tool
	logger *slog.Logger
}

// NewToolbox creates an empty toolbox.
func NewToolbox(logger *slog.Logger) *Toolbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolbox{
		tools:  make(map[string]Tool),
		logger: logger.With("component", "toolbox"),
	}
}

// RegisterTool registers a tool.
func (tb *Toolbox) RegisterTool(tool Tool) error {
	if tool.GetName() == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if _, exists := tb.tools[tool.GetName()]; exists {
		return fmt.Errorf("tool %s is already registered", tool.GetName())
	}
	tb.tools[tool.GetName()] = tool
	return nil
}

// Tools returns the registered tools in name order.
func (tb *Toolbox) Tools() []Tool {
	names := make([]string, 0, len(tb.tools))
	for name := range tb.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, tb.tools[name])
	}
	return out
}

// ChatTools returns the registered tools in wire format.
func (tb *Toolbox) ChatTools() []*aisdk.ChatTool {
	return ToChatTools(tb.Tools())
}

// Execute dispatches one tool call. It never returns an error for tool-
// level problems; those travel back to the model as the result text.
func (tb *Toolbox) Execute(ctx context.Context, call *aisdk.ToolCall) *aisdk.ToolResponse {
	name := call.Function.Name
	tool, ok := tb.tools[name]
	if !ok {
		tb.logger.Warn("model requested unknown tool", "tool", name)
		return &aisdk.ToolResponse{
			ToolCallID: call.ID,
			ResultText: fmt.Sprintf("The tool %q is not supported. Answer without it.", name),
			IsError:    true,
		}
	}

	resp, err := tool.Execute(ctx, call)
	if err != nil {
		// Typed tools report their own failures; this is a safety net
		// for foreign Tool implementations.
		tb.logger.Error("tool execution error", "tool", name, "error", err)
		return &aisdk.ToolResponse{
			ToolCallID: call.ID,
			ResultText: fmt.Sprintf("The %s tool failed: %v", name, err),
			IsError:    true,
		}
	}
	if resp.ToolCallID == "" {
		resp.ToolCallID = call.ID
	}
	return resp
}

// ExecuteObserver is told about each call ExecuteAll completes, with the
// time the call took.
type ExecuteObserver func(call *aisdk.ToolCall, resp *aisdk.ToolResponse, elapsed time.Duration)

// ExecuteAll runs the calls independently, in the given order, invoking
// observe (when non-nil) after each one. There is no rollback: each call
// is atomic against the external store and partial application is
// reported per call.
func (tb *Toolbox) ExecuteAll(ctx context.Context, calls []aisdk.ToolCall, observe ExecuteObserver) []*aisdk.ToolResponse {
	results := make([]*aisdk.ToolResponse, 0, len(calls))
	for i := range calls {
		call := &calls[i]
		started := time.Now()
		resp := tb.Execute(ctx, call)
		if observe != nil {
			observe(call, resp, time.Since(started))
		}
		results = append(results, resp)
	}
	return results
}
