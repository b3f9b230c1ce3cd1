package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/nudgyapp/companion/src/aisdk"
	"github.com/nudgyapp/companion/src/fallback"
)

// ChatCmd is the interactive chat loop.
type ChatCmd struct {
	NoStream bool `help:"Disable streaming output"`
}

func (c *ChatCmd) Run(ctx *kong.Context, cli *CLI) error {
	logger := createCLILogger(cli.LogLevel)

	companion, cleanup, err := buildCompanion(cli, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Println("Chat started. Type 'exit' to finish the session.")
	cctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		printed := 0
		var onPartial aisdk.StreamHandler
		if !c.NoStream {
			onPartial = func(accumulated string) {
				fmt.Print(accumulated[printed:])
				printed = len(accumulated)
			}
		}

		reply, err := companion.Respond(cctx, input, onPartial)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		// Streamed text is already on screen; fallback tiers and
		// tool-heavy turns arrive whole.
		if printed == 0 {
			fmt.Print(reply.Text)
		} else if remainder := reply.Text; len(remainder) > printed {
			fmt.Print(remainder[printed:])
		}
		fmt.Println()
		if reply.Tier != fallback.TierPrimary {
			logger.Info("answered degraded", "tier", reply.Tier)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	summary, err := companion.End(cctx)
	if err != nil {
		return err
	}
	if summary != nil {
		fmt.Printf("Session over: %d turn(s), %d added, %d done.\n",
			summary.Turns, summary.ItemsCreated, summary.ItemsCompleted)
	}
	return nil
}
