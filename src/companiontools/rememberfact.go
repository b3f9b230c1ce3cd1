package companiontools

import (
	"context"
	"fmt"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/storage"
)

const RememberFactName = "remember_fact"

const rememberFactPrompt = `Store a lasting fact about the user, such as a preference, a name, or a recurring date. Do not store tasks here; use add_task for anything the user needs to do.`

// RememberFactInput represents the input for remembering a fact.
type RememberFactInput struct {
	Text string `json:"text" required:"true" description:"The fact, phrased as a standalone sentence"`
}

func makeRememberFactHandler(deps Deps) agent.GenericToolHandler[RememberFactInput] {
	return func(ctx context.Context, input RememberFactInput) (*aisdk.ToolResponse, error) {
		if deps.Facts == nil {
			return nil, fmt.Errorf("fact storage is not configured")
		}

		fact := &storage.Fact{Text: input.Text}
		if err := deps.Facts.Append(fact); err != nil {
			return nil, fmt.Errorf("failed to store fact: %w", err)
		}
		deps.logger().Info("fact stored", "tool", RememberFactName, "fact", fact.ID)

		return &aisdk.ToolResponse{
			ResultText: "Noted, I'll remember that.",
			SideEffects: []aisdk.SideEffect{{
				Kind:   aisdk.EffectFactLearned,
				ItemID: fact.ID,
				Detail: fact.Text,
			}},
		}, nil
	}
}

// RememberFactTool returns the remember_fact tool definition.
func RememberFactTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(RememberFactName, rememberFactPrompt, makeRememberFactHandler(deps))
}
