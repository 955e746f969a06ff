package memory

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// MemoryType classifies long-term memories.
type MemoryType string

const (
	TypeFact             MemoryType = "fact"
	TypePreference       MemoryType = "preference"
	TypeEvent            MemoryType = "event"
	TypeEmotion          MemoryType = "emotion"
	TypeConsolidatedFact MemoryType = "consolidated_fact"
)

// Memory is one durable long-term memory unit. Immutable once written
// except for superseding re-writes under the same id.
type Memory struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Type       MemoryType             `json:"memory_type"`
	Importance float64                `json:"importance"`
	CreatedAt  time.Time              `json:"created_at"`
	UserID     string                 `json:"user_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ConversationTurn is one ephemeral short-term exchange. It lives only
// in the in-memory ring and is never persisted.
type ConversationTurn struct {
	ID               string
	UserMessage      string
	BotResponse      string
	Timestamp        time.Time
	UserID           string
	EmotionalContext map[string]interface{}
	Topics           []string
}

// ContentID derives the stable memory id from owner and content.
func ContentID(userID, content string) string {
	sum := md5.Sum([]byte(userID + ":" + content))
	return hex.EncodeToString(sum[:])[:16]
}
