package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ShortTerm is the bounded per-user ring of recent conversation turns.
// Entirely in-process; rebuilt each lifetime.
type ShortTerm struct {
	maxTurns int

	mu            sync.Mutex
	conversations map[string][]ConversationTurn
}

func NewShortTerm(maxTurns int) *ShortTerm {
	if maxTurns <= 0 {
		maxTurns = 10
	}
	return &ShortTerm{
		maxTurns:      maxTurns,
		conversations: map[string][]ConversationTurn{},
	}
}

// AddTurn appends a turn and truncates the ring to the last maxTurns.
func (s *ShortTerm) AddTurn(userID, userMessage, botResponse string, emotionalContext map[string]interface{}, topics []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	turn := ConversationTurn{
		ID:               ContentID(userID, now.Format(time.RFC3339Nano)),
		UserMessage:      userMessage,
		BotResponse:      botResponse,
		Timestamp:        now,
		UserID:           userID,
		EmotionalContext: emotionalContext,
		Topics:           topics,
	}

	turns := append(s.conversations[userID], turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.conversations[userID] = turns
}

// RecentContext returns the last n turns in chronological order.
func (s *ShortTerm) RecentContext(userID string, n int) []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.conversations[userID]
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

// ContextString formats the last n turns as a transcript block, or ""
// when no turns exist.
func (s *ShortTerm) ContextString(userID string, n int) string {
	turns := s.RecentContext(userID, n)
	if len(turns) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("【最近の会話】\n")
	for _, turn := range turns {
		fmt.Fprintf(&b, "ユーザー：%s\n", turn.UserMessage)
		fmt.Fprintf(&b, "あなた：%s\n", turn.BotResponse)
	}
	return b.String()
}

// Topics collects the distinct topics from the last n turns.
func (s *ShortTerm) Topics(userID string, n int) []string {
	turns := s.RecentContext(userID, n)
	seen := map[string]struct{}{}
	out := []string{}
	for _, turn := range turns {
		for _, topic := range turn.Topics {
			if _, ok := seen[topic]; ok {
				continue
			}
			seen[topic] = struct{}{}
			out = append(out, topic)
		}
	}
	return out
}

// Clear drops one user's buffer.
func (s *ShortTerm) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, userID)
}

// ClearAll drops every buffer.
func (s *ShortTerm) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = map[string][]ConversationTurn{}
}
