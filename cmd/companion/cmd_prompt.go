package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

// PromptCmd sends one message and prints the reply.
type PromptCmd struct {
	Text []string `arg:"" help:"The message to send"`
	JSON bool     `help:"Print the reply with tier and side effects as JSON"`
}

func (p *PromptCmd) Run(ctx *kong.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	companion, cleanup, err := buildCompanion(cli, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	cctx := context.Background()
	reply, err := companion.Respond(cctx, strings.Join(p.Text, " "), nil)
	if err != nil {
		return err
	}
	if _, err := companion.End(cctx); err != nil {
		logger.Warn("failed to record session summary", "error", err)
	}

	if p.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"text":         reply.Text,
			"tier":         reply.Tier,
			"side_effects": reply.SideEffects,
		})
	}

	fmt.Println(reply.Text)
	return nil
}
