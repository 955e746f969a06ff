package knowledge

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// SourceType says where a knowledge item came from.
type SourceType string

const (
	SourceFile         SourceType = "file"
	SourceLearned      SourceType = "learned"
	SourceConversation SourceType = "conversation"
	SourceRetrieved    SourceType = "retrieved"
)

// InsightType classifies learned insights. The first four feed the
// persona enhancement; deep-analysis types are kept as-is.
type InsightType string

const (
	InsightPreference  InsightType = "preference"
	InsightPattern     InsightType = "pattern"
	InsightFact        InsightType = "fact"
	InsightEmotionRule InsightType = "emotion_rule"
)

// Item is one imported knowledge unit.
type Item struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	SourceType SourceType             `json:"source_type"`
	Category   string                 `json:"category"`
	Importance float64                `json:"importance"`
	CreatedAt  time.Time              `json:"created_at"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Insight is one learned understanding derived from knowledge items.
type Insight struct {
	ID           string      `json:"id"`
	KnowledgeIDs []string    `json:"original_knowledge_ids"`
	Type         InsightType `json:"insight_type"`
	Content      string      `json:"content"`
	Confidence   float64     `json:"confidence"`
	CreatedAt    time.Time   `json:"created_at"`
}

func hashID(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func insightID(kind, content string) string {
	return hashID(kind + ":" + content)[:16]
}

// runePrefix truncates s to at most n runes.
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
