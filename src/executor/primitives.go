package executor

import (
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/session"
)

// LoopState represents where the turn loop currently is.
type LoopState int

const (
	// StateAwaitingModel means a chat completion request is in flight.
	StateAwaitingModel LoopState = iota
	// StateToolCallsReceived means the model answered with tool calls.
	StateToolCallsReceived
	// StateExecutingTools means the requested tools are running.
	StateExecutingTools
)

func (s LoopState) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolCallsReceived:
		return "tool_calls_received"
	case StateExecutingTools:
		return "executing_tools"
	default:
		return "unknown"
	}
}

// OutcomeKind classifies how a turn ended.
type OutcomeKind int

const (
	// OutcomeFinalResponse means the model produced a plain text answer.
	OutcomeFinalResponse OutcomeKind = iota
	// OutcomeLoopExhausted means the iteration bound was hit while the
	// model was still asking for tools. Work done so far is kept.
	OutcomeLoopExhausted
	// OutcomeFailed means the model call itself failed.
	OutcomeFailed
)

// TurnRequest describes one user turn to run through the loop.
type TurnRequest struct {
	// Session holds the conversation history; the user input and every
	// message produced by the loop are appended to it.
	Session *session.Session

	// Input is the user's message for this turn.
	Input string

	// ExtractMode forces tool use on the first round, for inputs that
	// must produce actionable items rather than chat.
	ExtractMode bool

	// OnPartial, when set, switches the model call to streaming and
	// receives the accumulated assistant text after each content delta.
	OnPartial aisdk.StreamHandler
}

// TurnResult is the outcome of a completed (or abandoned) turn.
type TurnResult struct {
	Kind OutcomeKind

	// Text is the assistant reply shown to the user. Set for
	// FinalResponse and LoopExhausted, empty for Failed.
	Text string

	// SideEffects accumulates every effect observed across all tool
	// rounds of the turn, in execution order.
	SideEffects []aisdk.SideEffect

	// ToolCallCount is the total number of tool calls the model made.
	ToolCallCount int

	// Iterations is the number of model round trips performed.
	Iterations int
}

// CountEffects returns how many side effects of one kind the turn made.
func (r *TurnResult) CountEffects(kind aisdk.SideEffectKind) int {
	return aisdk.CountByKind(r.SideEffects, kind)
}
