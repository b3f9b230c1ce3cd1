// Package fallback degrades gracefully when the model is unavailable: a
// turn first runs through the primary loop, then through a secondary
// plain-completion responder, and finally through a deterministic keyword
// responder that always produces something.
package fallback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/executor"
	"github.com/nudgyapp/companion/src/llmclient"
)

// Tier identifies which layer of the chain produced the reply.
type Tier string

const (
	TierPrimary       Tier = "primary"
	TierSecondary     Tier = "secondary"
	TierDeterministic Tier = "deterministic"
)

// Reply is the chain's answer for one turn. Text is never empty.
type Reply struct {
	Text        string
	Tier        Tier
	SideEffects []aisdk.SideEffect

	// Result is the primary loop's outcome when TierPrimary answered,
	// nil otherwise.
	Result *executor.TurnResult
}

// SecondaryResponder answers from the conversation history without tools.
// Implementations typically wrap a cheaper or more available model.
type SecondaryResponder interface {
	Respond(ctx context.Context, messages []*aisdk.Message) (string, error)
}

// Chain runs a turn through the tiers in order.
type Chain struct {
	primary   *executor.Service
	secondary SecondaryResponder
	keyword   *KeywordResponder
	logger    *slog.Logger
}

// ChainConfig holds configuration for creating a Chain.
type ChainConfig struct {
	Primary *executor.Service

	// Secondary is optional; when nil the chain goes straight from the
	// primary to the keyword responder.
	Secondary SecondaryResponder

	// Keyword defaults to NewKeywordResponder(nil).
	Keyword *KeywordResponder

	Logger *slog.Logger
}

// NewChain creates a fallback chain.
func NewChain(config ChainConfig) *Chain {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Keyword == nil {
		config.Keyword = NewKeywordResponder(nil)
	}
	return &Chain{
		primary:   config.Primary,
		secondary: config.Secondary,
		keyword:   config.Keyword,
		logger:    config.Logger.With("component", "fallback"),
	}
}

// RunTurn drives one user turn to a guaranteed reply. Only caller bugs
// (missing session, empty input) return an error; model trouble degrades
// through the tiers instead. The winning text is always appended to the
// session so the history reads the same regardless of which tier spoke.
func (c *Chain) RunTurn(ctx context.Context, req *executor.TurnRequest) (*Reply, error) {
	result, err := c.primary.RunTurn(ctx, req)
	if err == nil {
		return &Reply{
			Text:        result.Text,
			Tier:        TierPrimary,
			SideEffects: result.SideEffects,
			Result:      result,
		}, nil
	}
	if isCallerError(err) {
		return nil, err
	}
	// A cancelled turn stays silent. Supersede cancellation happens on
	// the child context the session hands the loop, so the caller's
	// context is still live here; the error itself is the signal.
	if errors.Is(err, context.Canceled) {
		return nil, err
	}

	c.logger.Warn("primary responder failed, degrading",
		"session", req.Session.ID(),
		"circuit_open", llmclient.IsCircuitOpen(err),
		"error", err,
	)

	if c.secondary != nil {
		text, serr := c.secondary.Respond(ctx, req.Session.MessagesForRequest())
		if serr == nil && text != "" {
			req.Session.AddAssistant(text, nil)
			return &Reply{Text: text, Tier: TierSecondary}, nil
		}
		if serr != nil {
			c.logger.Warn("secondary responder failed, degrading",
				"session", req.Session.ID(),
				"error", serr,
			)
		}
	}

	text, effects := c.keyword.Respond(req.Input)
	req.Session.AddAssistant(text, nil)
	req.Session.RecordEffects(effects)
	return &Reply{Text: text, Tier: TierDeterministic, SideEffects: effects}, nil
}

func isCallerError(err error) bool {
	return errors.Is(err, executor.ErrInputRequired) ||
		errors.Is(err, executor.ErrSessionRequired) ||
		errors.Is(err, executor.ErrModelClientRequired)
}

// ModelResponder is a SecondaryResponder backed by a plain chat
// completion with no tools.
type ModelResponder struct {
	client aisdk.ModelClient
}

// NewModelResponder wraps a model client as a secondary responder.
func NewModelResponder(client aisdk.ModelClient) *ModelResponder {
	return &ModelResponder{client: client}
}

// Respond asks the model for a text-only answer over the history.
func (r *ModelResponder) Respond(ctx context.Context, messages []*aisdk.Message) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, &aisdk.ChatCompletionRequest{
		Messages:   messages,
		ToolChoice: aisdk.ToolChoiceNone,
	})
	if err != nil {
		return "", err
	}
	msg := resp.FirstMessage()
	if msg == nil || msg.Content == "" {
		return "", llmclient.ErrEmptyResponse
	}
	return msg.Content, nil
}
