package aisdk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func TestAggregatorMatchesNonStreamingShape(t *testing.T) {
	// The logical response: text plus one tool call with JSON arguments.
	want := ChatCompletionResponse{
		ID:    "chatcmpl-9",
		Model: "test-model",
		Choices: []Choice{{
			Message: Message{
				Role:    RoleAssistant,
				Content: "On it.",
				ToolCalls: []ToolCall{{
					ID:   "call_1",
					Type: "function",
					Function: FunctionCall{
						Name:      "add_task",
						Arguments: `{"title":"water plants"}`,
					},
				}},
			},
			FinishReason: "tool_calls",
		}},
	}

	// The same response split into N streamed fragments.
	agg := NewStreamAggregator()
	chunks := []*StreamChunk{
		{ID: "chatcmpl-9", Model: "test-model", Choices: []Choice{{Delta: &Message{Content: "On "}}}},
		{Choices: []Choice{{Delta: &Message{Content: "it."}}}},
		{Choices: []Choice{{Delta: &Message{ToolCalls: []ToolCall{{Index: intp(0), ID: "call_1", Function: FunctionCall{Name: "add_task", Arguments: `{"title":`}}}}}}},
		{Choices: []Choice{{Delta: &Message{ToolCalls: []ToolCall{{Index: intp(0), Function: FunctionCall{Arguments: `"water plants"}`}}}}}}},
		{Choices: []Choice{{FinishReason: "tool_calls"}}},
	}
	for _, c := range chunks {
		agg.AddChunk(c)
	}

	got := agg.ToResponse()
	require.Len(t, got.Choices, 1)
	assert.Equal(t, want.Choices[0].Message, got.Choices[0].Message)
	assert.Equal(t, want.Choices[0].FinishReason, got.Choices[0].FinishReason)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Model, got.Model)
}

func TestAggregatorDropsNamelessFragments(t *testing.T) {
	agg := NewStreamAggregator()
	agg.AddChunk(&StreamChunk{Choices: []Choice{{Delta: &Message{ToolCalls: []ToolCall{{Index: intp(3), Function: FunctionCall{Arguments: `{"orphan":true}`}}}}}}})
	assert.Empty(t, agg.ToolCalls())
}

func TestAggregatorReturnsContentDelta(t *testing.T) {
	agg := NewStreamAggregator()
	assert.Equal(t, "abc", agg.AddChunk(&StreamChunk{Choices: []Choice{{Delta: &Message{Content: "abc"}}}}))
	assert.Equal(t, "", agg.AddChunk(&StreamChunk{Choices: []Choice{{FinishReason: "stop"}}}))
	assert.True(t, agg.Finished())
}
