package companiontools

import (
	"context"
	"fmt"
	"time"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

const DeferTaskName = "defer_task"

const deferTaskPrompt = `Push a task on the user's list to later. Use this when the user says not now, later, or tomorrow about an existing task.`

// DeferTaskInput represents the input for deferring a task.
type DeferTaskInput struct {
	Title string `json:"title" required:"true" description:"Part of the title of the task to defer"`
	Until string `json:"until,omitempty" description:"When the task should resurface, RFC 3339. Omit to defer indefinitely"`
}

func makeDeferTaskHandler(deps Deps) agent.GenericToolHandler[DeferTaskInput] {
	return func(ctx context.Context, input DeferTaskInput) (*aisdk.ToolResponse, error) {
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

		var until *time.Time
		text := fmt.Sprintf("Parked %q for now.", task.Title)
		if input.Until != "" {
			parsed, err := time.Parse(time.RFC3339, input.Until)
			if err != nil {
				return nil, fmt.Errorf("until must be RFC 3339, got %q", input.Until)
			}
			until = &parsed
			text = fmt.Sprintf("Deferred %q until %s.", task.Title, parsed.Format("Mon Jan 2 15:04"))
		}

		if err := storage.DeferTask(ctx, deps.DB, task.ID, until); err != nil {
			return nil, fmt.Errorf("failed to defer task: %w", err)
		}
		deps.logger().Info("task deferred", "tool", DeferTaskName, "task", task.ID, "until", input.Until)

		return &aisdk.ToolResponse{
			ResultText: text,
			SideEffects: []aisdk.SideEffect{{
				Kind:   aisdk.EffectItemDeferred,
				ItemID: task.ID,
				Title:  task.Title,
			}},
		}, nil
	}
}

// DeferTaskTool returns the defer_task tool definition.
func DeferTaskTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(DeferTaskName, deferTaskPrompt, makeDeferTaskHandler(deps))
}
