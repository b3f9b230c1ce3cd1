package companionagent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/companiontools"
	"github.com/nudgyapp/companion/src/executor"
	"github.com/nudgyapp/companion/src/fallback"
	"github.com/nudgyapp/companion/src/session"
	"github.com/nudgyapp/companion/src/storage"
)

// Config holds everything needed to assemble a Companion.
type Config struct {
	// Model is the primary model client.
	Model aisdk.ModelClient

	// Secondary answers when the primary is down. Optional.
	Secondary fallback.SecondaryResponder

	// DB is used by the tools and, when set, for the persistent
	// conversation log. Required.
	DB storage.ExecQuerier

	// Facts stores learned facts and seeds the system prompt. Required.
	Facts *storage.FactStore

	// ModelName labels persisted log entries.
	ModelName string

	Session session.Config
	Logger  *slog.Logger
}

// Companion is the conversation facade: one instance per user session.
// Not safe for concurrent use; drive it from one goroutine.
type Companion struct {
	sess      *session.Session
	chain     *fallback.Chain
	toolbox   *agent.Toolbox
	db        storage.ExecQuerier
	modelName string
	logger    *slog.Logger
}

// New assembles the toolbox, turn loop, and fallback chain, and starts a
// fresh session with the generated system prompt.
func New(cfg Config) (*Companion, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	toolbox := agent.NewToolbox(logger)
	err := companiontools.RegisterAll(toolbox, companiontools.Deps{
		DB:     cfg.DB,
		Facts:  cfg.Facts,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build toolbox: %w", err)
	}

	chain := fallback.NewChain(fallback.ChainConfig{
		Primary: executor.NewService(executor.ServiceConfig{
			Model:    cfg.Model,
			Toolbox:  toolbox,
			Logger:   logger,
			Recorder: &dbToolRecorder{db: cfg.DB, logger: logger},
		}),
		Secondary: cfg.Secondary,
		Logger:    logger,
	})

	facts, err := cfg.Facts.Recent(20)
	if err != nil {
		logger.Warn("failed to load facts for prompt", "error", err)
	}

	sess := session.New(cfg.Session)
	sess.Start(GenerateSystemPrompt(toolbox, facts, time.Now()))

	return &Companion{
		sess:      sess,
		chain:     chain,
		toolbox:   toolbox,
		db:        cfg.DB,
		modelName: cfg.ModelName,
		logger:    logger.With("component", "companion"),
	}, nil
}

// Session exposes the underlying session.
func (c *Companion) Session() *session.Session { return c.sess }

// Respond runs one user turn to a guaranteed reply and appends the
// exchange to the persistent conversation log. Log failures are logged,
// not returned; losing a log line must not break the conversation.
func (c *Companion) Respond(ctx context.Context, input string, onPartial aisdk.StreamHandler) (*fallback.Reply, error) {
	reply, err := c.chain.RunTurn(ctx, &executor.TurnRequest{
		Session:     c.sess,
		Input:       input,
		ExtractMode: looksActionable(input),
		OnPartial:   onPartial,
	})
	if err != nil {
		return nil, err
	}

	c.logTurn(ctx, input, reply)
	return reply, nil
}

// End closes the session and persists its summary. Returns nil when the
// session had no turns.
func (c *Companion) End(ctx context.Context) (*session.Summary, error) {
	summary := c.sess.End()
	if summary == nil {
		return nil, nil
	}
	err := storage.CreateSessionSummary(ctx, c.db, &storage.SessionSummary{
		SessionID:      summary.SessionID,
		Topic:          summary.Topic,
		Turns:          summary.Turns,
		ItemsCreated:   summary.ItemsCreated,
		ItemsCompleted: summary.ItemsCompleted,
		EndedAt:        summary.EndedAt,
	})
	if err != nil {
		return summary, fmt.Errorf("failed to persist session summary: %w", err)
	}
	return summary, nil
}

func (c *Companion) logTurn(ctx context.Context, input string, reply *fallback.Reply) {
	sessionID := c.sess.ID()
	if err := storage.CreateMessage(ctx, c.db, &storage.Message{
		SessionID: sessionID,
		Role:      aisdk.RoleUser,
		Content:   input,
	}); err != nil {
		c.logger.Warn("failed to log user message", "error", err)
	}

	if err := storage.CreateMessage(ctx, c.db, &storage.Message{
		SessionID: sessionID,
		Role:      aisdk.RoleAssistant,
		Model:     c.modelName,
		Content:   reply.Text,
	}); err != nil {
		c.logger.Warn("failed to log assistant message", "error", err)
	}
}

// dbToolRecorder persists each tool execution the loop performs.
type dbToolRecorder struct {
	db     storage.Execer
	logger *slog.Logger
}

func (r *dbToolRecorder) RecordToolExecution(ctx context.Context, sessionID string, call *aisdk.ToolCall, resp *aisdk.ToolResponse, elapsed time.Duration) {
	record := &storage.ToolExecution{
		SessionID:  sessionID,
		ToolName:   call.Function.Name,
		Input:      call.Function.Arguments,
		Output:     resp.ResultText,
		DurationMs: elapsed.Milliseconds(),
	}
	if resp.IsError {
		record.Error = resp.ResultText
		record.Output = ""
	}
	if err := storage.CreateToolExecution(ctx, r.db, record); err != nil {
		r.logger.Warn("failed to log tool execution", "tool", call.Function.Name, "error", err)
	}
}

// actionablePrefixes flag inputs that should force tool use on the first
// model round.
var actionablePrefixes = []string{
	"remind me",
	"don't forget",
	"dont forget",
	"add ",
	"todo ",
	"i need to ",
	"i have to ",
	"note down",
	"put down",
}

func looksActionable(input string) bool {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, prefix := range actionablePrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}
