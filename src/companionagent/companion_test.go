package companionagent

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/fallback"
	"github.com/nudgyapp/companion/src/storage"
)

type scriptedModel struct {
	responses []*aisdk.ChatCompletionResponse
	err       error
	requests  []*aisdk.ChatCompletionRequest
}

func (m *scriptedModel) CreateChatCompletion(ctx context.Context, req *aisdk.ChatCompletionRequest) (*aisdk.ChatCompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

func (m *scriptedModel) CreateChatCompletionStream(ctx context.Context, req *aisdk.ChatCompletionRequest, onPartial aisdk.StreamHandler) (*aisdk.ChatCompletionResponse, error) {
	return m.CreateChatCompletion(ctx, req)
}

func assistantText(content string) *aisdk.ChatCompletionResponse {
	return &aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{Message: aisdk.Message{Role: aisdk.RoleAssistant, Content: content}}},
	}
}

func assistantToolCall(id, name, args string) *aisdk.ChatCompletionResponse {
	return &aisdk.ChatCompletionResponse{
		Choices: []aisdk.Choice{{Message: aisdk.Message{
			Role: aisdk.RoleAssistant,
			ToolCalls: []aisdk.ToolCall{{
				ID:       id,
				Function: aisdk.FunctionCall{Name: name, Arguments: args},
			}},
		}}},
	}
}

func newTestCompanion(t *testing.T, model aisdk.ModelClient) (*Companion, *storage.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "companion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	facts, err := storage.NewFactStore(afero.NewMemMapFs(), "/facts.jsonl")
	require.NoError(t, err)

	companion, err := New(Config{
		Model:     model,
		DB:        db.DB(),
		Facts:     facts,
		ModelName: "test-model",
	})
	require.NoError(t, err)
	return companion, db
}

func TestRespondRunsToolsAndLogsTurn(t *testing.T) {
	model := &scriptedModel{responses: []*aisdk.ChatCompletionResponse{
		assistantToolCall("call_1", "add_task", `{"title":"buy milk"}`),
		assistantText("Added buy milk to your list."),
	}}
	companion, db := newTestCompanion(t, model)
	ctx := context.Background()

	reply, err := companion.Respond(ctx, "remind me to buy milk", nil)
	require.NoError(t, err)
	assert.Equal(t, fallback.TierPrimary, reply.Tier)
	assert.Equal(t, 1, aisdk.CountByKind(reply.SideEffects, aisdk.EffectItemCreated))

	// An actionable input forces tool use on the first round.
	require.NotEmpty(t, model.requests)
	assert.Equal(t, aisdk.ToolChoiceRequired, model.requests[0].ToolChoice)

	task, err := storage.FindOpenTaskByTitle(ctx, db.DB(), "buy milk")
	require.NoError(t, err)
	require.NotNil(t, task)

	messages, err := storage.GetMessagesBySessionID(ctx, db.DB(), companion.Session().ID())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, aisdk.RoleUser, messages[0].Role)
	assert.Equal(t, "remind me to buy milk", messages[0].Content)
	assert.Equal(t, "test-model", messages[1].Model)
}

func TestRespondPlainQuestionDoesNotForceTools(t *testing.T) {
	model := &scriptedModel{responses: []*aisdk.ChatCompletionResponse{
		assistantText("Nothing urgent today."),
	}}
	companion, _ := newTestCompanion(t, model)

	reply, err := companion.Respond(context.Background(), "how does my day look?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Nothing urgent today.", reply.Text)
	assert.Equal(t, aisdk.ToolChoiceAuto, model.requests[0].ToolChoice)
}

func TestRespondDegradesWhenModelDown(t *testing.T) {
	model := &scriptedModel{err: errors.New("upstream unavailable")}
	companion, _ := newTestCompanion(t, model)

	reply, err := companion.Respond(context.Background(), "hey", nil)
	require.NoError(t, err)
	assert.Equal(t, fallback.TierDeterministic, reply.Tier)
	assert.NotEmpty(t, reply.Text)
}

func TestEndPersistsSummary(t *testing.T) {
	model := &scriptedModel{responses: []*aisdk.ChatCompletionResponse{
		assistantText("Sure thing."),
	}}
	companion, db := newTestCompanion(t, model)
	ctx := context.Background()

	_, err := companion.Respond(ctx, "how does my day look?", nil)
	require.NoError(t, err)

	summary, err := companion.End(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Turns)

	stored, err := storage.ListRecentSummaries(ctx, db.DB(), 5)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, summary.Topic, stored[0].Topic)
}

func TestEndWithoutTurnsIsNoop(t *testing.T) {
	companion, db := newTestCompanion(t, &scriptedModel{})
	ctx := context.Background()

	summary, err := companion.End(ctx)
	require.NoError(t, err)
	assert.Nil(t, summary)

	stored, err := storage.ListRecentSummaries(ctx, db.DB(), 5)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestToolExecutionsAreRecorded(t *testing.T) {
	model := &scriptedModel{responses: []*aisdk.ChatCompletionResponse{
		assistantToolCall("call_1", "add_task", `{"title":"water plants"}`),
		assistantText("Done."),
	}}
	companion, db := newTestCompanion(t, model)
	ctx := context.Background()

	_, err := companion.Respond(ctx, "add water plants", nil)
	require.NoError(t, err)

	// The recorder writes through the same Execer the tools use.
	var count int
	row := db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM tool_executions WHERE session_id = ?", companion.Session().ID())
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}
