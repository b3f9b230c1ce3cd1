package companiontools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

const ListTasksName = "list_tasks"

const listTasksPrompt = `Look up the user's task list. Call this before answering questions about what is on the list, what is due, or what is already done.`

// ListTasksInput represents the input for listing tasks.
type ListTasksInput struct {
	Status string `json:"status,omitempty" description:"Which tasks to list: open, done, or deferred. Defaults to open"`
}

func makeListTasksHandler(deps Deps) agent.GenericToolHandler[ListTasksInput] {
	return func(ctx context.Context, input ListTasksInput) (*aisdk.ToolResponse, error) {
		status := storage.TaskStatus(input.Status)
		switch status {
		case "":
			status = storage.StatusOpen
		case storage.StatusOpen, storage.StatusDone, storage.StatusDeferred:
		default:
			return &aisdk.ToolResponse{
				ResultText: fmt.Sprintf("Unknown status %q. Use open, done, or deferred.", input.Status),
				IsError:    true,
			}, nil
		}

		tasks, err := storage.ListTasksByStatus(ctx, deps.DB, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks: %w", err)
		}
		if len(tasks) == 0 {
			return &aisdk.ToolResponse{ResultText: fmt.Sprintf("There are no %s tasks.", status)}, nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%d %s task(s):\n", len(tasks), status)
		for _, task := range tasks {
			fmt.Fprintf(&b, "- %s", task.Title)
			if task.DueAt != nil {
				fmt.Fprintf(&b, " (due %s)", task.DueAt.Format("Mon Jan 2 15:04"))
			}
			if task.DeferredUntil != nil {
				fmt.Fprintf(&b, " (until %s)", task.DeferredUntil.Format("Mon Jan 2 15:04"))
			}
			b.WriteString("\n")
		}
		return &aisdk.ToolResponse{ResultText: strings.TrimRight(b.String(), "\n")}, nil
	}
}

// ListTasksTool returns the list_tasks tool definition.
func ListTasksTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(ListTasksName, listTasksPrompt, makeListTasksHandler(deps))
}
