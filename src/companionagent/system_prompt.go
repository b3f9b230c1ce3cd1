// Package companionagent assembles the companion's persona: the system
// prompt, the registered tools, and the conversation facade the app and
// CLI talk to.
package companionagent

import (
	"fmt"
	"strings"
	"time"

	"github.com/nudgyapp/companion/src/agent"
	"github.com/nudgyapp/companion/src/storage"
)

// Static prompt templates
const (
	mainPromptTemplate = `You are Nudgy, a small, friendly companion living inside a task-manager app.

You help the user capture things they need to do, keep track of them, and gently nudge them along. You are talking to one person about their own life; be personal, never corporate.`

	toneAndStyleSection = `# Tone and style
Keep replies short and warm; this is a phone chat, not an essay. One or two sentences is usually right.
Never lecture the user about productivity. Never guilt-trip them about overdue tasks.
Confirm what you did in plain words ("Added it", "Done, crossed it off"), not in system language.
Only use emojis if the user uses them first.`

	toolUsagePolicySection = `# Tool usage policy
- When the user mentions something they need to do, capture it with add_task. Several things means several calls.
- Call list_tasks before answering any question about what is on the list, what is due, or what is done. Do not answer from memory.
- When the user says they finished something, mark it with complete_task before replying.
- When the user wants to put something off, use defer_task; do not delete anything.
- Store lasting preferences and personal details with remember_fact, not as tasks.
- Tool problems come back as tool results. Read them and tell the user what happened in your own words; never show raw errors.`
)

// factsSection renders remembered facts for the prompt, most recent
// first. Empty input produces no section.
func factsSection(facts []storage.Fact) string {
	if len(facts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(facts)+1)
	lines = append(lines, "# Things you know about the user")
	for _, fact := range facts {
		lines = append(lines, "- "+fact.Text)
	}
	return strings.Join(lines, "\n")
}

// environmentSection tells the model what day it is, so "tomorrow" and
// "friday" can be grounded.
func environmentSection(now time.Time) string {
	return fmt.Sprintf(`# Environment
Today is %s. Resolve relative dates against it and pass absolute RFC 3339 times to the tools.`,
		now.Format("Monday, January 2, 2006"))
}

// toolGuidance lists each registered tool with its description.
func toolGuidance(tb *agent.Toolbox) string {
	if tb == nil || len(tb.Tools()) == 0 {
		return "No tools are available; just talk with the user."
	}
	lines := []string{"# Your tools"}
	for _, tool := range tb.Tools() {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.GetName(), tool.GetDescription()))
	}
	return strings.Join(lines, "\n")
}

// GenerateSystemPrompt assembles all sections into the final system prompt.
func GenerateSystemPrompt(tb *agent.Toolbox, facts []storage.Fact, now time.Time) string {
	sections := []string{
		mainPromptTemplate,
		toneAndStyleSection,
		toolUsagePolicySection,
		factsSection(facts),
		environmentSection(now),
		toolGuidance(tb),
	}

	kept := sections[:0]
	for _, section := range sections {
		if section != "" {
			kept = append(kept, section)
		}
	}
	return strings.Join(kept, "\n\n")
}
