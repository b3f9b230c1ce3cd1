// Package companiontools holds the typed tools the model can call: task
// list mutations, task lookup, fact memory, and reply drafting. Handlers
// report their work as side effects so the app layer can update its UI
// without parsing reply text.
package companiontools

import (
	"fmt"
	"log/slog"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/storage"
)

// Deps carries the shared dependencies tool handlers need.
type Deps struct {
	DB     storage.ExecQuerier
	Facts  *storage.FactStore
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// All constructs every tool against the given dependencies.
func All(deps Deps) ([]agent.Tool, error) {
	constructors := []func(Deps) (agent.Tool, error){
		AddTaskTool,
		CompleteTaskTool,
		DeferTaskTool,
		ListTasksTool,
		RememberFactTool,
		DraftReplyTool,
	}
	tools := make([]agent.Tool, 0, len(constructors))
	for _, construct := range constructors {
		tool, err := construct(deps)
		if err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// RegisterAll builds every tool and registers it on the toolbox.
func RegisterAll(tb *agent.Toolbox, deps Deps) error {
	tools, err := All(deps)
	if err != nil {
		return err
	}
	for _, tool := range tools {
		if err := tb.RegisterTool(tool); err != nil {
			return fmt.Errorf("failed to register %s: %w", tool.GetName(), err)
		}
	}
	return nil
}
