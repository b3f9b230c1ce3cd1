package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONStringArray stores a string slice as a JSON-encoded TEXT column.
type JSONStringArray []string

// Scan implements the sql.Scanner interface for JSONStringArray
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = []string{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan type %T into JSONStringArray", value)
	}
	if len(raw) == 0 || string(raw) == "[]" {
		*j = []string{}
		return nil
	}
	return json.Unmarshal(raw, j)
}

// Value implements the driver.Valuer interface for JSONStringArray
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "[]", nil
	}
	return json.Marshal(j)
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusOpen     TaskStatus = "open"
	StatusDone     TaskStatus = "done"
	StatusDeferred TaskStatus = "deferred"
)

// Task is one item on the user's list.
type Task struct {
	ID            string          `json:"id" db:"id"`
	Title         string          `json:"title" db:"title"`
	Notes         string          `json:"notes" db:"notes"`
	Status        TaskStatus      `json:"status" db:"status"`
	Tags          JSONStringArray `json:"tags" db:"tags"`
	DueAt         *time.Time      `json:"due_at,omitempty" db:"due_at"`
	DeferredUntil *time.Time      `json:"deferred_until,omitempty" db:"deferred_until"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Message is one conversation log entry, keyed by session.
type Message struct {
	ID        string    `json:"id" db:"id"`
	SessionID string    `json:"session_id" db:"session_id"`
	Role      string    `json:"role" db:"role"`
	Model     string    `json:"model" db:"model"`
	Content   string    `json:"content" db:"content"`
	ToolCalls *string   `json:"tool_calls,omitempty" db:"tool_calls"` // JSON array of tool calls
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ToolExecution records one tool call made during a session.
type ToolExecution struct {
	ID         string    `json:"id" db:"id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	MessageID  string    `json:"message_id" db:"message_id"`
	ToolName   string    `json:"tool_name" db:"tool_name"`
	Input      string    `json:"input" db:"input"`
	Output     string    `json:"output" db:"output"`
	Error      string    `json:"error" db:"error"`
	DurationMs int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SessionSummary is the persisted end-of-session summary.
type SessionSummary struct {
	ID             string    `json:"id" db:"id"`
	SessionID      string    `json:"session_id" db:"session_id"`
	Topic          string    `json:"topic" db:"topic"`
	Turns          int       `json:"turns" db:"turns"`
	ItemsCreated   int       `json:"items_created" db:"items_created"`
	ItemsCompleted int       `json:"items_completed" db:"items_completed"`
	EndedAt        time.Time `json:"ended_at" db:"ended_at"`
}
