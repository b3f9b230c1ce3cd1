package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

// ErrTaskNotFound is returned by mutations that target a missing task.
var ErrTaskNotFound = errors.New("task not found")

const taskColumns = `id, title, notes, status, json(tags) as tags, due_at, deferred_until, completed_at, created_at, updated_at`

// CreateTask inserts a new task. Missing ID, status, and timestamps are
// filled in.
func CreateTask(ctx context.Context, db Execer, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.Status == "" {
		task.Status = StatusOpen
	}
	if task.Tags == nil {
		task.Tags = JSONStringArray{}
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}

	query := `INSERT INTO tasks (id, title, notes, status, tags, due_at, deferred_until, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Notes,
		task.Status,
		task.Tags,
		task.DueAt,
		task.DeferredUntil,
		task.CreatedAt,
		task.UpdatedAt,
	)
	return err
}

// GetTaskByID retrieves a task by its ID, nil when not found.
func GetTaskByID(ctx context.Context, db sqlscan.Querier, taskID string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	var task Task
	err := sqlscan.Get(ctx, db, &task, query, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// ListTasksByStatus retrieves tasks in the given status, soonest due
// first, undated tasks last.
func ListTasksByStatus(ctx context.Context, db sqlscan.Querier, status TaskStatus) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = ? ORDER BY due_at IS NULL, due_at, created_at`
	var tasks []Task
	if err := sqlscan.Select(ctx, db, &tasks, query, status); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindOpenTaskByTitle finds the oldest open task whose title contains the
// given text, case-insensitively. Returns nil when nothing matches.
func FindOpenTaskByTitle(ctx context.Context, db sqlscan.Querier, title string) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = ? AND lower(title) LIKE '%' || lower(?) || '%' ORDER BY created_at LIMIT 1`
	var task Task
	err := sqlscan.Get(ctx, db, &task, query, StatusOpen, title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// CompleteTask marks a task done and stamps the completion time.
func CompleteTask(ctx context.Context, db Execer, taskID string) error {
	now := time.Now()
	query := `UPDATE tasks SET status = ?, completed_at = ?, deferred_until = NULL, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, StatusDone, now, now, taskID)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

// DeferTask parks a task until the given time. A nil until defers it
// indefinitely.
func DeferTask(ctx context.Context, db Execer, taskID string, until *time.Time) error {
	now := time.Now()
	query := `UPDATE tasks SET status = ?, deferred_until = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, StatusDeferred, until, now, taskID)
	if err != nil {
		return err
	}
	return requireOneRow(result)
}

// ReopenDueDeferredTasks moves deferred tasks whose defer time has passed
// back to open. Returns how many tasks were reopened.
func ReopenDueDeferredTasks(ctx context.Context, db Execer, now time.Time) (int64, error) {
	query := `UPDATE tasks SET status = ?, deferred_until = NULL, updated_at = ? WHERE status = ? AND deferred_until IS NOT NULL AND deferred_until <= ?`
	result, err := db.ExecContext(ctx, query, StatusOpen, now, StatusDeferred, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountTasksByStatus returns the number of tasks per status.
func CountTasksByStatus(ctx context.Context, db sqlscan.Querier) (map[TaskStatus]int, error) {
	type statusCount struct {
		Status TaskStatus `db:"status"`
		N      int        `db:"n"`
	}
	var rows []statusCount
	query := `SELECT status, COUNT(*) as n FROM tasks GROUP BY status`
	if err := sqlscan.Select(ctx, db, &rows, query); err != nil {
		return nil, err
	}
	counts := make(map[TaskStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.N
	}
	return counts, nil
}

func requireOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
