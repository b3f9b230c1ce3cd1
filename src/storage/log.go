package storage

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// CreateMessage appends a message to the conversation log.
func CreateMessage(ctx context.Context, db Execer, message *Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	query := `INSERT INTO messages (id, session_id, role, model, content, tool_calls, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		message.ID,
		message.SessionID,
		message.Role,
		message.Model,
		message.Content,
		message.ToolCalls,
		message.CreatedAt,
	)
	return err
}

// GetMessagesBySessionID retrieves a session's log in creation order.
func GetMessagesBySessionID(ctx context.Context, db sqlscan.Querier, sessionID string) ([]Message, error) {
	query := `SELECT id, session_id, role, model, content, tool_calls, created_at FROM messages WHERE session_id = ? ORDER BY created_at, id`
	var messages []Message
	if err := sqlscan.Select(ctx, db, &messages, query, sessionID); err != nil {
		return nil, err
	}
	return messages, nil
}

// CreateToolExecution records one tool call.
func CreateToolExecution(ctx context.Context, db Execer, execution *ToolExecution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now()
	}

	query := `INSERT INTO tool_executions (id, session_id, message_id, tool_name, input, output, error, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		execution.ID,
		execution.SessionID,
		execution.MessageID,
		execution.ToolName,
		execution.Input,
		execution.Output,
		execution.Error,
		execution.DurationMs,
		execution.CreatedAt,
	)
	return err
}

// CreateSessionSummary persists an end-of-session summary.
func CreateSessionSummary(ctx context.Context, db Execer, summary *SessionSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.EndedAt.IsZero() {
		summary.EndedAt = time.Now()
	}

	query := `INSERT INTO session_summaries (id, session_id, topic, turns, items_created, items_completed, ended_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		summary.ID,
		summary.SessionID,
		summary.Topic,
		summary.Turns,
		summary.ItemsCreated,
		summary.ItemsCompleted,
		summary.EndedAt,
	)
	return err
}

// ListRecentSummaries retrieves the most recent session summaries, newest
// first.
func ListRecentSummaries(ctx context.Context, db sqlscan.Querier, limit int) ([]SessionSummary, error) {
	query := `SELECT id, session_id, topic, turns, items_created, items_completed, ended_at FROM session_summaries ORDER BY ended_at DESC LIMIT ?`
	var summaries []SessionSummary
	if err := sqlscan.Select(ctx, db, &summaries, query, limit); err != nil {
		return nil, err
	}
	return summaries, nil
}
