package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/session"
)

// scriptedModel replays canned responses and records every request.
type scriptedModel struct {
	script   []func() (*aisdk.ChatCompletionResponse, error)
	requests []*aisdk.ChatCompletionRequest
	streamed int
}

func (m *scriptedModel) next(req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return nil, errors.New("scripted model: no responses left")
	}
	step := m.script[0]
	if len(m.script) > 1 {
		m.script = m.script[1:]
	}
	return step()
}

func (m *scriptedModel) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	return m.next(req)
}

func (m *scriptedModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest, onPartial aisdk.StreamHandler) (*aisdk.ChatCompletionResponse, error) {
	m.streamed++
	resp, err := m.next(req)
	if err == nil && onPartial != nil {
		onPartial(resp.FirstMessage().Content)
	}
	return resp, err
}

func textResponse(content string) func() (*aisdk.ChatCompletionResponse, error) {
	return func() (*aisdk.ChatCompletionResponse, error) {
		return &aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: aisdk.Message{Role: aisdk.RoleAssistant, Content: content}}},
		}, nil
	}
}

func toolCallResponse(calls ...aisdk.ToolCall) func() (*aisdk.ChatCompletionResponse, error) {
	return func() (*aisdk.ChatCompletionResponse, error) {
		return &aisdk.ChatCompletionResponse{
			Choices: []aisdk.Choice{{Message: aisdk.Message{Role: aisdk.RoleAssistant, ToolCalls: calls}}},
		}, nil
	}
}

type addItemInput struct {
	Title string `json:"title" required:"true"`
}

func newTestToolbox(t *testing.T) *agent.Toolbox {
	t.Helper()
	tb := agent.NewToolbox(nil)
	tool, err := agent.NewGenericTool("add_task", "adds a task to the list", func(ctx context.Context, input addItemInput) (*aisdk.ToolResponse, error) {
		return &aisdk.ToolResponse{
			ResultText:  fmt.Sprintf("Added %q to the list.", input.Title),
			SideEffects: []aisdk.SideEffect{{Kind: aisdk.EffectItemCreated, Title: input.Title}},
		}, nil
	})
	require.NoError(t, err)
	require.NoError(t, tb.RegisterTool(tool))
	return tb
}

func newTestSession() *session.Session {
	s := session.New(session.Config{})
	s.Start("you are a task companion")
	return s
}

func addTaskCall(id, title string) aisdk.ToolCall {
	return aisdk.ToolCall{
		ID: id,
		Function: aisdk.FunctionCall{
			Name:      "add_task",
			Arguments: fmt.Sprintf(`{"title":%q}`, title),
		},
	}
}

func TestPlainAnswerFinishesInOneRound(t *testing.T) {
	model := &scriptedModel{script: []func() (*aisdk.ChatCompletionResponse, error){
		textResponse("You have nothing due today."),
	}}
	svc := NewService(ServiceConfig{Model: model, Toolbox: newTestToolbox(t)})
	sess := newTestSession()

	result, err := svc.RunTurn(context.Background(), &TurnRequest{Session: sess, Input: "anything due today?"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalResponse, result.Kind)
	assert.Equal(t, "You have nothing due today.", result.Text)
	assert.Equal(t, 1, result.Iterations)
	assert.Empty(t, result.SideEffects)

	require.Len(t, model.requests, 1)
	assert.Equal(t, aisdk.ToolChoiceAuto, model.requests[0].ToolChoice)
	assert.NotEmpty(t, model.requests[0].Tools)

	msgs := sess.MessagesForRequest()
	assert.Equal(t, "You have nothing due today.", msgs[len(msgs)-1].Content)
}

func TestForcedToolUseCreatesTwoItems(t *testing.T) {
	model := &scriptedModel{script: []func() (*aisdk.ChatCompletionResponse, error){
		toolCallResponse(addTaskCall("call_1", "call mom"), addTaskCall("call_2", "buy milk")),
		textResponse("Both are on your list now."),
	}}
	svc := NewService(ServiceConfig{Model: model, Toolbox: newTestToolbox(t)})
	sess := newTestSession()

	result, err := svc.RunTurn(context.Background(), &TurnRequest{
		Session:     sess,
		Input:       "remind me to call mom and buy milk",
		ExtractMode: true,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinalResponse, result.Kind)
	assert.Equal(t, "Both are on your list now.", result.Text)
	assert.Equal(t, 2, result.ToolCallCount)
	assert.Equal(t, 2, result.Iterations)
	assert.Equal(t, 2, result.CountEffects(aisdk.EffectItemCreated))

	// Forced tool choice applies to the first round only.
	require.Len(t, model.requests, 2)
	assert.Equal(t, aisdk.ToolChoiceRequired, model.requests[0].ToolChoice)
	assert.Equal(t, aisdk.ToolChoiceAuto, model.requests[1].ToolChoice)

	// The second request carries the assistant tool calls and one tool
	// result per call.
	msgs := model.requests[1].Messages
	require.True(t, len(msgs) >= 4)
	assistant := msgs[len(msgs)-3]
	require.Len(t, assistant.ToolCalls, 2)
	assert.Equal(t, aisdk.RoleTool, msgs[len(msgs)-2].Role)
	assert.Equal(t, "call_1", msgs[len(msgs)-2].ToolCallID)
	assert.Equal(t, "call_2", msgs[len(msgs)-1].ToolCallID)
}

func TestLoopExhaustedKeepsCompletedWork(t *testing.T) {
	model := &scriptedModel{script: []func() (*aisdk.ChatCompletionResponse, error){
		toolCallResponse(addTaskCall("c1", "water plants")),
	}}
	svc := NewService(ServiceConfig{Model: model, Toolbox: newTestToolbox(t)})
	sess := newTestSession()

	result, err := svc.RunTurn(context.Background(), &TurnRequest{Session: sess, Input: "keep going"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeLoopExhausted, result.Kind)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, result.ToolCallCount)
	assert.NotEmpty(t, result.Text, "exhaustion still yields a user-facing reply")
	assert.Equal(t, 3, result.CountEffects(aisdk.EffectItemCreated), "effects from every round are kept")

	msgs := sess.MessagesForRequest()
	assert.Equal(t, result.Text, msgs[len(msgs)-1].Content)
}

func TestModelFailurePropagates(t *testing.T) {
	boom := errors.New("upstream unavailable")
	model := &scriptedModel{script: []func() (*aisdk.ChatCompletionResponse, error){
		func() (*aisdk.ChatCompletionResponse, error) { return nil, boom },
	}}
	svc := NewService(ServiceConfig{Model: model, Toolbox: newTestToolbox(t)})
	sess := newTestSession()

	result, err := svc.RunTurn(context.Background(), &TurnRequest{Session: sess, Input: "hello"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, result.Kind)
	assert.Equal(t, 1, sess.Turns(), "user input stays recorded for fallback handling")
}

func TestStreamingPathIsUsedWhenPartialHandlerSet(t *testing.T) {
	model := &scriptedModel{script: []func() (*aisdk.ChatCompletionResponse, error){
		textResponse("streamed answer"),
	}}
	svc := NewService(ServiceConfig{Model: model, Toolbox: newTestToolbox(t)})
	sess := newTestSession()

	var partials []string
	result, err := svc.RunTurn(context.Background(), &TurnRequest{
		Session:   sess,
		Input:     "say something",
		OnPartial: func(accumulated string) { partials = append(partials, accumulated) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, model.streamed)
	assert.Equal(t, []string{"streamed answer"}, partials)
	assert.Equal(t, "streamed answer", result.Text)
}

func TestEmptyInputRejected(t *testing.T) {
	svc := NewService(ServiceConfig{Model: &scriptedModel{}, Toolbox: newTestToolbox(t)})
	_, err := svc.RunTurn(context.Background(), &TurnRequest{Session: newTestSession(), Input: "   "})
	assert.ErrorIs(t, err, ErrInputRequired)
}
