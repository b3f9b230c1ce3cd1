package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgyapp/companion/src/aisdk"
)

type echoInput struct {
	Text string `json:"text" required:"true" description:"Text to echo back"`
}

func newEchoTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewGenericTool("echo", "echoes its input", func(ctx context.Context, input echoInput) (*aisdk.ToolResponse, error) {
		return &aisdk.ToolResponse{ResultText: "echo: " + input.Text}, nil
	})
	require.NoError(t, err)
	return tool
}

func TestToolboxDispatch(t *testing.T) {
	tb := NewToolbox(nil)
	require.NoError(t, tb.RegisterTool(newEchoTool(t)))

	resp := tb.Execute(context.Background(), &aisdk.ToolCall{
		ID:       "call_1",
		Function: aisdk.FunctionCall{Name: "echo", Arguments: `{"text":"hi"}`},
	})
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "echo: hi", resp.ResultText)
	assert.False(t, resp.IsError)
}

func TestToolboxUnknownToolReportedNotThrown(t *testing.T) {
	tb := NewToolbox(nil)
	resp := tb.Execute(context.Background(), &aisdk.ToolCall{
		ID:       "call_9",
		Function: aisdk.FunctionCall{Name: "launch_rocket"},
	})
	require.NotNil(t, resp)
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "not supported")
	assert.Empty(t, resp.SideEffects)
}

func TestGenericToolSchemaCarriesRequiredAndDescription(t *testing.T) {
	tool := newEchoTool(t)
	schema := tool.GetParameters()
	require.NotNil(t, schema)
	assert.Contains(t, schema.Required, "text")

	prop, ok := schema.Properties["text"]
	require.True(t, ok)
	require.NotNil(t, prop.TypeObject)
	require.NotNil(t, prop.TypeObject.Description)
	assert.Equal(t, "Text to echo back", *prop.TypeObject.Description)
}

func TestGenericToolRejectsMissingRequiredField(t *testing.T) {
	tb := NewToolbox(nil)
	require.NoError(t, tb.RegisterTool(newEchoTool(t)))

	resp := tb.Execute(context.Background(), &aisdk.ToolCall{
		ID:       "call_2",
		Function: aisdk.FunctionCall{Name: "echo", Arguments: `{}`},
	})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "text")
}

func TestGenericToolHandlerErrorBecomesResultText(t *testing.T) {
	tool, err := NewGenericTool("flaky", "always fails", func(ctx context.Context, input echoInput) (*aisdk.ToolResponse, error) {
		return nil, errors.New("store unavailable")
	})
	require.NoError(t, err)

	resp, err := tool.Execute(context.Background(), &aisdk.ToolCall{
		ID:       "call_3",
		Function: aisdk.FunctionCall{Name: "flaky", Arguments: `{"text":"x"}`},
	})
	require.NoError(t, err, "handler failures are reported to the model, not raised")
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "store unavailable")
}

func TestExecuteAllPartialApplication(t *testing.T) {
	tb := NewToolbox(nil)
	require.NoError(t, tb.RegisterTool(newEchoTool(t)))

	var observed []string
	results := tb.ExecuteAll(context.Background(), []aisdk.ToolCall{
		{ID: "a", Function: aisdk.FunctionCall{Name: "echo", Arguments: `{"text":"one"}`}},
		{ID: "b", Function: aisdk.FunctionCall{Name: "missing"}},
		{ID: "c", Function: aisdk.FunctionCall{Name: "echo", Arguments: `{"text":"two"}`}},
	}, func(call *aisdk.ToolCall, resp *aisdk.ToolResponse, elapsed time.Duration) {
		observed = append(observed, call.ID)
	})
	require.Len(t, results, 3)
	assert.False(t, results[0].IsError)
	assert.True(t, results[1].IsError)
	assert.False(t, results[2].IsError, "a failing call does not stop later calls")
	assert.Equal(t, []string{"a", "b", "c"}, observed, "every call is observed, in order")
}
