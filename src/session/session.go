// Package session holds the ordered turn history for one logical
// conversation and decides which slice of it is sent on the next request.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nudgyapp/companion/src/aisdk"
)

const (
	defaultWindowTurns        = 30
	defaultSummarizeThreshold = 20
	topicMaxLen               = 80
)

// Config tunes the context window and summarization trigger.
type Config struct {
	// WindowTurns is the number of trailing non-system messages kept in
	// a request once history outgrows it.
	WindowTurns int
	// SummarizeThreshold is the user-turn count after which the caller
	// should request a summary before the session grows further.
	SummarizeThreshold int
}

// Session is the in-memory message history of one conversation. The
// append order of messages is the single source of truth for what gets
// sent on the next turn. One generation runs per session at a time; a
// new user turn supersedes any in-flight one.
type Session struct {
	mu  sync.Mutex
	id  string
	cfg Config

	messages  []*aisdk.Message
	userTurns int

	itemsCreated   int
	itemsCompleted int
	topic          string

	cancelInflight context.CancelFunc
	inflightSeq    int
}

// Summary describes a finished conversation.
type Summary struct {
	SessionID      string
	Topic          string
	Turns          int
	ItemsCreated   int
	ItemsCompleted int
	EndedAt        time.Time
}

// New creates an empty session. Call Start before the first turn.
func New(cfg Config) *Session {
	if cfg.WindowTurns <= 0 {
		cfg.WindowTurns = defaultWindowTurns
	}
	if cfg.SummarizeThreshold <= 0 {
		cfg.SummarizeThreshold = defaultSummarizeThreshold
	}
	return &Session{
		id:  uuid.New().String(),
		cfg: cfg,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Start resets history to a single system message and clears counters.
func (s *Session) Start(systemPrompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = []*aisdk.Message{{
		Role:      aisdk.RoleSystem,
		Content:   systemPrompt,
		CreatedAt: time.Now(),
	}}
	s.userTurns = 0
	s.itemsCreated = 0
	s.itemsCompleted = 0
	s.topic = ""
}

// AddUser appends a user message and counts the turn.
func (s *Session) AddUser(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, &aisdk.Message{
		Role:      aisdk.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
	s.userTurns++
	if s.topic == "" {
		s.topic = truncate(text, topicMaxLen)
	}
}

// AddAssistant appends an assistant message, optionally carrying tool calls.
func (s *Session) AddAssistant(text string, toolCalls []aisdk.ToolCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, &aisdk.Message{
		Role:      aisdk.RoleAssistant,
		Content:   text,
		ToolCalls: toolCalls,
		CreatedAt: time.Now(),
	})
}

// AddToolResult appends a tool message referencing its originating call.
func (s *Session) AddToolResult(text, toolCallID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, &aisdk.Message{
		Role:       aisdk.RoleTool,
		Content:    text,
		Name:       name,
		ToolCallID: toolCallID,
		CreatedAt:  time.Now(),
	})
}

// RecordEffects tallies side effects for the end-of-session summary.
func (s *Session) RecordEffects(effects []aisdk.SideEffect) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemsCreated += aisdk.CountByKind(effects, aisdk.EffectItemCreated)
	s.itemsCompleted += aisdk.CountByKind(effects, aisdk.EffectItemCompleted)
}

// MessagesForRequest returns the system message plus the most recent
// window of history. It never drops the system message and never
// separates a tool message from the assistant message that requested it.
// Calling it twice without intervening mutation yields identical output.
func (s *Session) MessagesForRequest() []*aisdk.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return nil
	}

	system := s.messages[0]
	rest := s.messages[1:]
	if len(rest) <= s.cfg.WindowTurns {
		out := make([]*aisdk.Message, len(s.messages))
		copy(out, s.messages)
		return out
	}

	start := len(rest) - s.cfg.WindowTurns
	// A tool message must travel with its assistant tool-call message,
	// which immediately precedes the run of tool results.
	for start > 0 && rest[start].Role == aisdk.RoleTool {
		start--
	}

	out := make([]*aisdk.Message, 0, 1+len(rest)-start)
	out = append(out, system)
	out = append(out, rest[start:]...)
	return out
}

// Len returns the total number of messages including the system message.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Turns returns the number of user turns since Start.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userTurns
}

// NeedsSummarization reports whether the turn count has passed the
// configured threshold and the caller should request a summary.
func (s *Session) NeedsSummarization() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userTurns >= s.cfg.SummarizeThreshold
}

// End returns a summary of the conversation and clears all state. It
// returns nil when no turns occurred.
func (s *Session) End() *Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelInflight != nil {
		s.cancelInflight()
		s.cancelInflight = nil
	}
	if s.userTurns == 0 {
		s.messages = nil
		return nil
	}
	summary := &Summary{
		SessionID:      s.id,
		Topic:          s.topic,
		Turns:          s.userTurns,
		ItemsCreated:   s.itemsCreated,
		ItemsCompleted: s.itemsCompleted,
		EndedAt:        time.Now(),
	}
	s.messages = nil
	s.userTurns = 0
	s.itemsCreated = 0
	s.itemsCompleted = 0
	s.topic = ""
	return summary
}

// BeginTurn cancels any in-flight generation for this session and
// returns a context for the new one. Partial output of the superseded
// turn is discarded by its generation aborting before any append. The
// returned cancel must be called when the turn finishes; it is a no-op
// on the inflight handle if a newer turn has already superseded this one.
func (s *Session) BeginTurn(parent context.Context) (context.Context, context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelInflight != nil {
		s.cancelInflight()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancelInflight = cancel
	s.inflightSeq++
	seq := s.inflightSeq

	release := func() {
		cancel()
		s.mu.Lock()
		if s.inflightSeq == seq {
			s.cancelInflight = nil
		}
		s.mu.Unlock()
	}
	return ctx, release
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
