package companiontools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "companion.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	facts, err := storage.NewFactStore(afero.NewMemMapFs(), "/facts.jsonl")
	require.NoError(t, err)

	return Deps{DB: db.DB(), Facts: facts}
}

func execute(t *testing.T, tool agent.Tool, args map[string]interface{}) *aisdk.ToolResponse {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	resp, err := tool.Execute(context.Background(), &aisdk.ToolCall{
		ID:       "call_test",
		Function: aisdk.FunctionCall{Name: tool.GetName(), Arguments: string(raw)},
	})
	require.NoError(t, err)
	return resp
}

func TestAddTaskCreatesAndReportsEffect(t *testing.T) {
	deps := testDeps(t)
	tool, err := AddTaskTool(deps)
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{
		"title": "buy milk",
		"tags":  []string{"errand"},
	})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "buy milk")
	require.Len(t, resp.SideEffects, 1)
	effect := resp.SideEffects[0]
	assert.Equal(t, aisdk.EffectItemCreated, effect.Kind)
	assert.Equal(t, "buy milk", effect.Title)

	task, err := storage.GetTaskByID(context.Background(), deps.DB, effect.ItemID)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, storage.StatusOpen, task.Status)
	assert.Equal(t, storage.JSONStringArray{"errand"}, task.Tags)
}

func TestAddTaskRejectsBadDueDate(t *testing.T) {
	tool, err := AddTaskTool(testDeps(t))
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{
		"title":  "pay rent",
		"due_at": "next tuesday",
	})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "RFC 3339")
}

func TestCompleteTaskByPartialTitle(t *testing.T) {
	deps := testDeps(t)
	require.NoError(t, storage.CreateTask(context.Background(), deps.DB, &storage.Task{Title: "Call the dentist about Tuesday"}))

	tool, err := CompleteTaskTool(deps)
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{"title": "dentist"})
	assert.False(t, resp.IsError)
	require.Len(t, resp.SideEffects, 1)
	assert.Equal(t, aisdk.EffectItemCompleted, resp.SideEffects[0].Kind)

	counts, err := storage.CountTasksByStatus(context.Background(), deps.DB)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[storage.StatusDone])
}

func TestCompleteTaskUnknownTitleIsReported(t *testing.T) {
	tool, err := CompleteTaskTool(testDeps(t))
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{"title": "dentist"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "dentist")
	assert.Empty(t, resp.SideEffects, "nothing changed, nothing to report")
}

func TestCompleteTaskEmptyArgumentsRejected(t *testing.T) {
	deps := testDeps(t)
	require.NoError(t, storage.CreateTask(context.Background(), deps.DB, &storage.Task{Title: "water plants"}))

	tool, err := CompleteTaskTool(deps)
	require.NoError(t, err)

	// A call with no title must not match (and complete) an arbitrary
	// open task.
	resp := execute(t, tool, map[string]interface{}{})
	assert.True(t, resp.IsError)
	assert.Empty(t, resp.SideEffects)

	counts, err := storage.CountTasksByStatus(context.Background(), deps.DB)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[storage.StatusDone])
	assert.Equal(t, 1, counts[storage.StatusOpen])
}

func TestDeferTaskUntil(t *testing.T) {
	deps := testDeps(t)
	require.NoError(t, storage.CreateTask(context.Background(), deps.DB, &storage.Task{Title: "do taxes"}))

	tool, err := DeferTaskTool(deps)
	require.NoError(t, err)

	until := time.Now().Add(24 * time.Hour).Format(time.RFC3339)
	resp := execute(t, tool, map[string]interface{}{"title": "taxes", "until": until})
	assert.False(t, resp.IsError)
	require.Len(t, resp.SideEffects, 1)
	assert.Equal(t, aisdk.EffectItemDeferred, resp.SideEffects[0].Kind)

	tasks, err := storage.ListTasksByStatus(context.Background(), deps.DB, storage.StatusDeferred)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].DeferredUntil)
}

func TestListTasksFormatsOpenTasks(t *testing.T) {
	deps := testDeps(t)
	due := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, storage.CreateTask(context.Background(), deps.DB, &storage.Task{Title: "water plants"}))
	require.NoError(t, storage.CreateTask(context.Background(), deps.DB, &storage.Task{Title: "pay rent", DueAt: &due}))

	tool, err := ListTasksTool(deps)
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "2 open task(s)")
	assert.Contains(t, resp.ResultText, "water plants")
	assert.Contains(t, resp.ResultText, "pay rent (due Tue Sep 1 09:00)")
	assert.Empty(t, resp.SideEffects, "reads report no effects")
}

func TestListTasksRejectsUnknownStatus(t *testing.T) {
	tool, err := ListTasksTool(testDeps(t))
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{"status": "urgent"})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "urgent")
}

func TestRememberFactStores(t *testing.T) {
	deps := testDeps(t)
	tool, err := RememberFactTool(deps)
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{"text": "prefers oat milk"})
	assert.False(t, resp.IsError)
	require.Len(t, resp.SideEffects, 1)
	assert.Equal(t, aisdk.EffectFactLearned, resp.SideEffects[0].Kind)

	facts, err := deps.Facts.All()
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "prefers oat milk", facts[0].Text)
}

func TestDraftReplyEmitsDraftAndAction(t *testing.T) {
	tool, err := DraftReplyTool(testDeps(t))
	require.NoError(t, err)

	resp := execute(t, tool, map[string]interface{}{
		"recipient": "Sam",
		"intent":    "I can't make dinner on Friday, can we move it to next week",
	})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.ResultText, "Sam")
	require.Len(t, resp.SideEffects, 2)
	assert.Equal(t, aisdk.EffectDraftGenerated, resp.SideEffects[0].Kind)
	assert.Equal(t, aisdk.EffectActionTriggered, resp.SideEffects[1].Kind)
	assert.Equal(t, "open_share_sheet", resp.SideEffects[1].Detail)
}

func TestRegisterAll(t *testing.T) {
	tb := agent.NewToolbox(nil)
	require.NoError(t, RegisterAll(tb, testDeps(t)))
	assert.Len(t, tb.Tools(), 6)

	names := make([]string, 0)
	for _, tool := range tb.Tools() {
		names = append(names, tool.GetName())
	}
	assert.Contains(t, names, AddTaskName)
	assert.Contains(t, names, DraftReplyName)
}
