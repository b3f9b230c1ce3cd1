package aisdk

import (
	"sort"
	"strings"
)

// StreamAggregator assembles streaming deltas into the same response shape
// the non-streaming path produces. Content deltas are concatenated;
// tool-call argument fragments are concatenated per delta index until the
// stream ends.
type StreamAggregator struct {
	ID      string
	Object  string
	Created int64
	Model   string
	Content strings.Builder

	FinishReason string
	Usage        *Usage

	toolAcc map[int]*toolCallAccumulator
}

type toolCallAccumulator struct {
	id   string
	name string
	args strings.Builder
}

// NewStreamAggregator creates a new stream aggregator.
func NewStreamAggregator() *StreamAggregator {
	return &StreamAggregator{
		Object:  "chat.completion",
		toolAcc: make(map[int]*toolCallAccumulator),
	}
}

// AddChunk processes a stream chunk and updates the aggregated state.
// It returns the content delta carried by the chunk, empty when the chunk
// held no text.
func (a *StreamAggregator) AddChunk(chunk *StreamChunk) string {
	if a.ID == "" {
		a.ID = chunk.ID
	}
	if a.Created == 0 {
		a.Created = chunk.Created
	}
	if a.Model == "" {
		a.Model = chunk.Model
	}

	if len(chunk.Choices) == 0 {
		return ""
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != "" {
		a.FinishReason = choice.FinishReason
	}
	if choice.Delta == nil {
		return ""
	}

	for i, call := range choice.Delta.ToolCalls {
		idx := i
		if call.Index != nil {
			idx = *call.Index
		}
		acc, ok := a.toolAcc[idx]
		if !ok {
			acc = &toolCallAccumulator{}
			a.toolAcc[idx] = acc
		}
		if call.ID != "" {
			acc.id = call.ID
		}
		if call.Function.Name != "" {
			acc.name = call.Function.Name
		}
		if call.Function.Arguments != "" {
			acc.args.WriteString(call.Function.Arguments)
		}
	}

	if choice.Delta.Content != "" {
		a.Content.WriteString(choice.Delta.Content)
	}
	return choice.Delta.Content
}

// Finished reports whether a terminal finish_reason has been observed.
func (a *StreamAggregator) Finished() bool {
	return a.FinishReason != ""
}

// ToolCalls returns the assembled tool calls in ascending index order.
// Fragments that never received a function name are dropped.
func (a *StreamAggregator) ToolCalls() []ToolCall {
	if len(a.toolAcc) == 0 {
		return nil
	}
	indexes := make([]int, 0, len(a.toolAcc))
	for idx := range a.toolAcc {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	calls := make([]ToolCall, 0, len(a.toolAcc))
	for _, idx := range indexes {
		acc := a.toolAcc[idx]
		if acc.name == "" {
			continue
		}
		calls = append(calls, ToolCall{
			ID:   acc.id,
			Type: "function",
			Function: FunctionCall{
				Name:      acc.name,
				Arguments: acc.args.String(),
			},
		})
	}
	return calls
}

// ToResponse converts the aggregated stream into a ChatCompletionResponse.
func (a *StreamAggregator) ToResponse() *ChatCompletionResponse {
	response := &ChatCompletionResponse{
		ID:      a.ID,
		Object:  a.Object,
		Created: a.Created,
		Model:   a.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: Message{
					Role:      RoleAssistant,
					Content:   a.Content.String(),
					ToolCalls: a.ToolCalls(),
				},
				FinishReason: a.FinishReason,
			},
		},
	}
	if a.Usage != nil {
		response.Usage = *a.Usage
	}
	return response
}
