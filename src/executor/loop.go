// Package executor runs one user turn through the model/tool loop: ask
// the model, execute any tool calls it makes, feed the results back, and
// repeat until the model answers in plain text or the iteration bound is
// hit.
package executor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
)

const defaultMaxIterations = 3

// ToolRecorder observes completed tool executions, e.g. to persist them
// to the conversation log.
type ToolRecorder interface {
	RecordToolExecution(ctx context.Context, sessionID string, call *aisdk.ToolCall, resp *aisdk.ToolResponse, elapsed time.Duration)
}

// Service owns the turn loop. It is safe for concurrent use as long as
// each session is driven by one goroutine at a time.
type Service struct {
	model         aisdk.ModelClient
	toolbox       *agent.Toolbox
	recorder      ToolRecorder
	logger        *slog.Logger
	maxIterations int
}

// ServiceConfig holds configuration for creating a new Service.
type ServiceConfig struct {
	Model   aisdk.ModelClient
	Toolbox *agent.Toolbox

	// MaxIterations bounds model round trips per turn. Defaults to 3.
	MaxIterations int

	// Recorder, when set, is told about every tool execution.
	Recorder ToolRecorder

	Logger *slog.Logger
}

// NewService creates a turn loop service.
func NewService(config ServiceConfig) *Service {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = defaultMaxIterations
	}
	return &Service{
		model:         config.Model,
		toolbox:       config.Toolbox,
		recorder:      config.Recorder,
		logger:        config.Logger.With("component", "executor"),
		maxIterations: config.MaxIterations,
	}
}

// RunTurn appends the user input to the session and drives the loop to a
// terminal outcome. Model failures are returned unswallowed together with
// an OutcomeFailed result carrying whatever side effects already landed;
// callers decide whether to fall back.
func (s *Service) RunTurn(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	if s.model == nil {
		return nil, ErrModelClientRequired
	}
	if req.Session == nil {
		return nil, ErrSessionRequired
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, ErrInputRequired
	}

	req.Session.AddUser(req.Input)

	// Starting a new turn supersedes any still-running one for this
	// session; the stale request observes its context cancellation.
	ctx, release := req.Session.BeginTurn(ctx)
	defer release()

	result := &TurnResult{}

	for iteration := 1; iteration <= s.maxIterations; iteration++ {
		result.Iterations = iteration
		s.logger.Debug("model round trip",
			"session", req.Session.ID(),
			"iteration", iteration,
			"state", StateAwaitingModel.String(),
		)

		resp, err := s.complete(ctx, req, iteration)
		if err != nil {
			result.Kind = OutcomeFailed
			return result, err
		}

		msg := resp.FirstMessage()
		if msg == nil || len(msg.ToolCalls) == 0 {
			text := ""
			if msg != nil {
				text = msg.Content
			}
			req.Session.AddAssistant(text, nil)
			result.Kind = OutcomeFinalResponse
			result.Text = text
			return result, nil
		}

		s.logger.Debug("executing tool calls",
			"session", req.Session.ID(),
			"state", StateExecutingTools.String(),
			"count", len(msg.ToolCalls),
		)
		s.runTools(ctx, req, msg, result)
	}

	// The model kept asking for tools past the bound. The work already
	// done stays applied; close the turn with an honest summary line.
	text := s.exhaustedText(result)
	req.Session.AddAssistant(text, nil)
	result.Kind = OutcomeLoopExhausted
	result.Text = text
	return result, nil
}

// complete performs one chat completion round, streaming when the caller
// asked for partials.
func (s *Service) complete(ctx context.Context, req *TurnRequest, iteration int) (*aisdk.ChatCompletionResponse, error) {
	chatReq := &aisdk.ChatCompletionRequest{
		Messages: req.Session.MessagesForRequest(),
	}
	if s.toolbox != nil {
		chatReq.Tools = s.toolbox.ChatTools()
		chatReq.ToolChoice = aisdk.ToolChoiceAuto
		// Force tool use only on the first round so the follow-up after
		// tool results can still be a plain answer.
		if req.ExtractMode && iteration == 1 {
			chatReq.ToolChoice = aisdk.ToolChoiceRequired
		}
	}

	if req.OnPartial != nil {
		return s.model.CreateChatCompletionStream(ctx, chatReq, req.OnPartial)
	}
	return s.model.CreateChatCompletion(ctx, chatReq)
}

// runTools records the assistant tool-call message, executes every call
// in order, and appends one tool result message per call.
func (s *Service) runTools(ctx context.Context, req *TurnRequest, msg *aisdk.Message, result *TurnResult) {
	req.Session.AddAssistant(msg.Content, msg.ToolCalls)
	result.ToolCallCount += len(msg.ToolCalls)

	responses := s.toolbox.ExecuteAll(ctx, msg.ToolCalls, func(call *aisdk.ToolCall, resp *aisdk.ToolResponse, elapsed time.Duration) {
		if s.recorder != nil {
			s.recorder.RecordToolExecution(ctx, req.Session.ID(), call, resp, elapsed)
		}
	})

	var effects []aisdk.SideEffect
	for i, resp := range responses {
		req.Session.AddToolResult(resp.ResultText, resp.ToolCallID, msg.ToolCalls[i].Function.Name)
		effects = append(effects, resp.SideEffects...)
	}
	req.Session.RecordEffects(effects)
	result.SideEffects = append(result.SideEffects, effects...)
}

// exhaustedText synthesizes the reply for a turn that hit the iteration
// bound, acknowledging whatever actually got done.
func (s *Service) exhaustedText(result *TurnResult) string {
	done := result.CountEffects(aisdk.EffectItemCreated) +
		result.CountEffects(aisdk.EffectItemCompleted) +
		result.CountEffects(aisdk.EffectItemDeferred)
	if done > 0 {
		return "I've updated your list with what I could. If anything looks off or is missing, just tell me again."
	}
	return "I couldn't quite finish that one. Could you rephrase it and let's try again?"
}
