package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/nudgyapp/companion/src/storage"
)

// TasksCmd prints the task list without going through the model.
type TasksCmd struct {
	Status string `default:"open" enum:"open,done,deferred" help:"Which tasks to show"`
	DBPath string `help:"Database path (defaults to config)"`
}

func (t *TasksCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openDatabase(cli, t.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	cctx := context.Background()
	tasks, err := storage.ListTasksByStatus(cctx, db.DB(), storage.TaskStatus(t.Status))
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Printf("No %s tasks.\n", t.Status)
		return nil
	}

	for _, task := range tasks {
		line := "- " + task.Title
		if task.DueAt != nil {
			line += " (due " + task.DueAt.Format("Mon Jan 2 15:04") + ")"
		}
		if task.DeferredUntil != nil {
			line += " (until " + task.DeferredUntil.Format("Mon Jan 2 15:04") + ")"
		}
		fmt.Println(line)
	}
	return nil
}

// openDatabase opens the sqlite store at the explicit path, or the
// configured one.
func openDatabase(cli *CLI, path string) (*storage.DB, error) {
	if path == "" {
		cfg, err := loadConfig(cli)
		if err != nil {
			return nil, err
		}
		path = cfg.Storage.DatabasePath
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
