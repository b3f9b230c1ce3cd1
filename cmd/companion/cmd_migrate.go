package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

// MigrateCmd manages database migrations
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Run pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show applied migration versions"`
}

// MigrateUpCmd runs pending migrations
type MigrateUpCmd struct {
	DBPath string `help:"Database path (defaults to config)"`
}

// Run executes the migrate up command. Opening the store applies
// pending migrations.
func (c *MigrateUpCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openDatabase(cli, c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Database is up to date.")
	return nil
}

// MigrateStatusCmd shows migration status
type MigrateStatusCmd struct {
	DBPath string `help:"Database path (defaults to config)"`
}

// Run executes the migrate status command
func (c *MigrateStatusCmd) Run(ctx *kong.Context, cli *CLI) error {
	db, err := openDatabase(cli, c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.DB().Query("SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var version int
		var appliedAt string
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return err
		}
		fmt.Printf("%d\tapplied %s\n", version, appliedAt)
	}
	return rows.Err()
}
