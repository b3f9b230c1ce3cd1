package companiontools

import (
	"context"
	"fmt"
	"strings"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
)

const DraftReplyName = "draft_reply"

const draftReplyPrompt = `Draft a short message for the user to send to someone else, for example declining an invitation or asking to reschedule. The draft is handed to the app; the user reviews it before anything is sent.`

// DraftReplyInput represents the input for drafting a reply.
type DraftReplyInput struct {
	Recipient string `json:"recipient" required:"true" description:"Who the message is for"`
	Intent    string `json:"intent" required:"true" description:"What the message should accomplish, in one sentence"`
	Tone      string `json:"tone,omitempty" description:"Optional tone hint such as warm, brief, or formal"`
}

func makeDraftReplyHandler(deps Deps) agent.GenericToolHandler[DraftReplyInput] {
	return func(ctx context.Context, input DraftReplyInput) (*aisdk.ToolResponse, error) {
		var b strings.Builder
		fmt.Fprintf(&b, "Hi %s, ", input.Recipient)
		b.WriteString(strings.TrimRight(input.Intent, "."))
		b.WriteString(".")
		if strings.EqualFold(input.Tone, "warm") {
			b.WriteString(" Hope you're doing well!")
		}
		draft := b.String()

		deps.logger().Info("draft generated", "tool", DraftReplyName, "recipient", input.Recipient)

		// The app opens its share sheet with the draft; hence the extra
		// action effect alongside the draft itself.
		return &aisdk.ToolResponse{
			ResultText: fmt.Sprintf("Draft for %s: %s", input.Recipient, draft),
			SideEffects: []aisdk.SideEffect{
				{Kind: aisdk.EffectDraftGenerated, Title: input.Recipient, Detail: draft},
				{Kind: aisdk.EffectActionTriggered, Detail: "open_share_sheet"},
			},
		}, nil
	}
}

// DraftReplyTool returns the draft_reply tool definition.
func DraftReplyTool(deps Deps) (agent.Tool, error) {
	return agent.NewGenericTool(DraftReplyName, draftReplyPrompt, makeDraftReplyHandler(deps))
}
