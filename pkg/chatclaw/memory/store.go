// Package memory implements the in-memory conversation store: bounded
// per-user message history plus the process-wide system prompt. All
// state is volatile and lost on restart.
package memory

import (
	"strings"
	"sync"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message in a conversation. Turns are
// append-only and never edited after creation.
type Turn struct {
	Role    Role
	Content string
}

// Store holds every user's conversation and the system prompt.
//
// Store is safe for concurrent use, but the mutex guards map and slice
// mutation only: there is no per-user serialization across the
// completion round-trip, so two near-simultaneous messages from the
// same user can interleave their append/trim ordering.
type Store struct {
	mu            sync.Mutex
	conversations map[string][]Turn

	maxMessages int
	maxChars    int

	defaultPrompt string
	systemPrompt  string
}

// NewStore creates a store with the given history bounds and default
// system prompt.
func NewStore(maxMessages, maxChars int, defaultPrompt string) *Store {
	return &Store{
		conversations: make(map[string][]Turn),
		maxMessages:   maxMessages,
		maxChars:      maxChars,
		defaultPrompt: defaultPrompt,
		systemPrompt:  defaultPrompt,
	}
}

// Get returns a copy of the user's conversation, creating an empty one
// if the user has never been seen. Never fails.
func (s *Store) Get(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, ok := s.conversations[userID]
	if !ok {
		s.conversations[userID] = nil
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Append adds a turn to the user's conversation and trims it to the
// configured bounds, evicting oldest turns first.
func (s *Store) Append(userID string, role Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.conversations[userID], Turn{Role: role, Content: content})

	// Count bound has no floor: it may empty the conversation.
	for len(turns) > s.maxMessages {
		turns = turns[1:]
	}

	// Char bound keeps at least the most recent turn, even when that
	// turn alone exceeds the budget.
	total := 0
	for _, t := range turns {
		total += len(t.Content)
	}
	for total > s.maxChars && len(turns) > 1 {
		total -= len(turns[0].Content)
		turns = turns[1:]
	}

	s.conversations[userID] = turns
}

// ResetAll clears every stored conversation. Idempotent.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string][]Turn)
}

// users returns how many users currently have a conversation entry.
func (s *Store) users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations)
}

// SystemPrompt returns the current system prompt.
func (s *Store) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.systemPrompt
}

// SetSystemPrompt trims and stores text as the system prompt, falling
// back to the default when the trimmed result is empty. When alsoReset
// is set, every conversation is cleared as well.
func (s *Store) SetSystemPrompt(text string, alsoReset bool) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		s.systemPrompt = s.defaultPrompt
	} else {
		s.systemPrompt = text
	}
	if alsoReset {
		s.conversations = make(map[string][]Turn)
	}
}
