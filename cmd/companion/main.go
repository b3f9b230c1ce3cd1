package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `help:"Path to config file" type:"path"`
	APIKey   string `env:"COMPANION_API_KEY" help:"API key for the model endpoint"`
	BaseURL  string `help:"Custom API base URL"`
	Model    string `help:"Model override"`
	LogLevel string `default:"warn" help:"Log level"`

	Chat    ChatCmd    `cmd:"" default:"1" help:"Interactive chat session (default)"`
	Prompt  PromptCmd  `cmd:"" help:"Send a single message"`
	Tasks   TasksCmd   `cmd:"" help:"Show the task list"`
	Migrate MigrateCmd `cmd:"" help:"Database migrations"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("companion"),
		kong.Description("Conversational task companion"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	err := ctx.Run(&cli)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
