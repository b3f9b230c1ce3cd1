package companiontools

import (
	"context"
	"fmt"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

const CompleteTaskName = "complete_task"

const completeTaskPrompt = `Mark a task on the user's list as done. Identify the task by a distinctive part of its title.`

// CompleteTaskInput represents the input for completing a task.
type CompleteTaskInput struct {
	Title string `json:"title" required:"true" description:"Part of the title of the task to mark done"`
}

func makeCompleteTaskHandler(deps Deps) agent.GenericToolHandler[CompleteTaskInput] {
	return func(ctx context.Context, input CompleteTaskInput) (*aisdk.ToolResponse, error) {
		task, err := storage.FindOpenTaskByTitle(ctx, deps.DB, input.Title)
		if err != nil {
			return nil, fmt.Errorf("failed to look up task: %w", err)
		}
		if task == nil {
			return &aisdk.ToolResponse{
				ResultText: fmt.Sprintf("No open task matches %q. Ask the user which task they mean.", input.Title),
				IsError:    true,
			}, nil
		}

		if err := storage.CompleteTask(ctx, deps.DB, task.ID); err != nil {
			return nil, fmt.Errorf("failed to complete task: %w", err)
		}
		deps.logger().Info("task completed", "tool", CompleteTaskName, "task", task.ID, "title", task.Title)

		return &aisdk.ToolResponse{
			ResultText: fmt.Sprintf("Marked %q as done.", task.Title),
			SideEffects: []aisdk.SideEffect{{
				Kind:   aisdk.EffectItemCompleted,
				ItemID: task.ID,
				Title:  task.Title,
			}},
		}, nil
	}
}

// CompleteTaskTool returns the complete_task tool definition.
func CompleteTaskTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(CompleteTaskName, completeTaskPrompt, makeCompleteTaskHandler(deps))
}
