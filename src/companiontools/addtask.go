package companiontools

import (
	"context"
	"fmt"
	"time"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

const AddTaskName = "add_task"

const addTaskPrompt = `Add a task to the user's list. Use one call per task; if the user mentions several things to do, make one call for each.`

// AddTaskInput represents the input for adding a task.
type AddTaskInput struct {
	Title string   `json:"title" required:"true" description:"Short imperative title for the task"`
	Notes string   `json:"notes,omitempty" description:"Extra detail worth keeping with the task"`
	DueAt string   `json:"due_at,omitempty" description:"Due time in RFC 3339 format if the user gave one"`
	Tags  []string `json:"tags,omitempty" description:"Short lowercase labels such as errand or work"`
}

func makeAddTaskHandler(deps Deps) agent.GenericToolHandler[AddTaskInput] {
	return func(ctx context.Context, input AddTaskInput) (*aisdk.ToolResponse, error) {
		task := &storage.Task{
			Title: input.Title,
			Notes: input.Notes,
			Tags:  storage.JSONStringArray(input.Tags),
		}
		if input.DueAt != "" {
			due, err := time.Parse(time.RFC3339, input.DueAt)
			if err != nil {
				return nil, fmt.Errorf("due_at must be RFC 3339, got %q", input.DueAt)
			}
			task.DueAt = &due
		}

		if err := storage.CreateTask(ctx, deps.DB, task); err != nil {
			return nil, fmt.Errorf("failed to save task: %w", err)
		}
		deps.logger().Info("task created", "tool", AddTaskName, "task", task.ID, "title", task.Title)

		text := fmt.Sprintf("Added %q to the list.", task.Title)
		if task.DueAt != nil {
			text = fmt.Sprintf("Added %q, due %s.", task.Title, task.DueAt.Format("Mon Jan 2 15:04"))
		}
		return &aisdk.ToolResponse{
			ResultText: text,
			SideEffects: []aisdk.SideEffect{{
				Kind:   aisdk.EffectItemCreated,
				ItemID: task.ID,
				Title:  task.Title,
			}},
		}, nil
	}
}

// AddTaskTool returns the add_task tool definition.
func AddTaskTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(AddTaskName, addTaskPrompt, makeAddTaskHandler(deps))
}
