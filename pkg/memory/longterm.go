package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/providers"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

const memoriesCollection = "memories"

// LongTerm wraps the vector store's memories collection.
type LongTerm struct {
	coll vectorstore.Collection
}

func NewLongTerm(store vectorstore.Store) (*LongTerm, error) {
	coll, err := store.Collection(memoriesCollection)
	if err != nil {
		return nil, fmt.Errorf("open memories collection: %w", err)
	}
	return &LongTerm{coll: coll}, nil
}

// AddMemory upserts one memory by id.
func (l *LongTerm) AddMemory(ctx context.Context, m Memory) error {
	return l.AddMemories(ctx, []Memory{m})
}

// AddMemories upserts a batch of memories by id.
func (l *LongTerm) AddMemories(ctx context.Context, memories []Memory) error {
	if len(memories) == 0 {
		return nil
	}
	ids := make([]string, 0, len(memories))
	documents := make([]string, 0, len(memories))
	metadatas := make([]map[string]interface{}, 0, len(memories))
	for _, m := range memories {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		extraJSON, err := json.Marshal(m.Metadata)
		if err != nil {
			extraJSON = []byte("{}")
		}
		ids = append(ids, m.ID)
		documents = append(documents, m.Content)
		metadatas = append(metadatas, map[string]interface{}{
			"memory_type": string(m.Type),
			"importance":  m.Importance,
			"user_id":     m.UserID,
			"created_at":  m.CreatedAt.Format(time.RFC3339),
			"metadata":    string(extraJSON),
		})
	}
	return l.coll.Add(ctx, ids, documents, metadatas)
}

// RetrieveRelevant runs a similarity search and then drops results
// below minImportance. The importance cut happens after the search, so
// fewer than k results is normal.
func (l *LongTerm) RetrieveRelevant(ctx context.Context, query, userID string, k int, memoryTypes []MemoryType, minImportance float64) ([]Memory, error) {
	filter := vectorstore.Filter{}
	if userID != "" {
		filter["user_id"] = userID
	}
	if len(memoryTypes) > 0 {
		filter["memory_type"] = typeStrings(memoryTypes)
	}

	matches, err := l.coll.Query(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}

	memories := make([]Memory, 0, len(matches))
	for _, match := range matches {
		m := memoryFromMatch(match)
		if m.Importance < minImportance {
			continue
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// UserMemories fetches all of a user's memories by exact metadata
// match, no similarity ranking.
func (l *LongTerm) UserMemories(ctx context.Context, userID string, memoryTypes []MemoryType) ([]Memory, error) {
	filter := vectorstore.Filter{"user_id": userID}
	if len(memoryTypes) > 0 {
		filter["memory_type"] = typeStrings(memoryTypes)
	}
	matches, err := l.coll.Get(ctx, filter)
	if err != nil {
		return nil, err
	}
	memories := make([]Memory, 0, len(matches))
	for _, match := range matches {
		memories = append(memories, memoryFromMatch(match))
	}
	return memories, nil
}

// DeleteMemory removes one memory by id.
func (l *LongTerm) DeleteMemory(ctx context.Context, memoryID string) error {
	return l.coll.Delete(ctx, []string{memoryID})
}

// Consolidate asks the provider to summarize a user's accumulated facts
// into one consolidated memory. Additive: source facts stay in place.
// Provider failure is logged and the call becomes a no-op.
func (l *LongTerm) Consolidate(ctx context.Context, userID string, provider providers.LLMProvider) error {
	memories, err := l.UserMemories(ctx, userID, nil)
	if err != nil {
		return err
	}
	if len(memories) < 10 {
		return nil
	}

	facts := []Memory{}
	for _, m := range memories {
		if m.Type == TypeFact {
			facts = append(facts, m)
		}
	}
	if provider == nil || len(facts) <= 5 {
		return nil
	}

	recent := facts
	if len(recent) > 20 {
		recent = recent[len(recent)-20:]
	}
	contents := make([]string, 0, len(recent))
	for _, m := range recent {
		contents = append(contents, m.Content)
	}

	prompt := fmt.Sprintf(`ユーザーに関する以下の事実情報を要約し、重複を除去し、重要なポイントを抽出してください：

%s

簡潔な要点リストを出力してください：`, strings.Join(contents, "\n"))

	resp, err := providers.Generate(ctx, provider, prompt, "", providers.GenerateOptions{})
	if err != nil {
		logger.ErrorCF("memory", "memory consolidation failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}

	summary := Memory{
		ID:         ContentID("summary:facts", userID),
		Content:    "ユーザー事実の要約：" + resp.Content,
		Type:       TypeConsolidatedFact,
		Importance: 0.9,
		CreatedAt:  time.Now(),
		UserID:     userID,
	}
	return l.AddMemory(ctx, summary)
}

func typeStrings(types []MemoryType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func memoryFromMatch(match vectorstore.Match) Memory {
	m := Memory{
		ID:         match.ID,
		Content:    match.Document,
		Type:       TypeFact,
		Importance: 1.0,
		CreatedAt:  time.Now(),
	}
	if v, ok := match.Metadata["memory_type"].(string); ok && v != "" {
		m.Type = MemoryType(v)
	}
	if v, ok := match.Metadata["importance"].(float64); ok {
		m.Importance = v
	}
	if v, ok := match.Metadata["user_id"].(string); ok {
		m.UserID = v
	}
	if v, ok := match.Metadata["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.CreatedAt = t
		}
	}
	if v, ok := match.Metadata["metadata"].(string); ok && v != "" && v != "{}" {
		extra := map[string]interface{}{}
		if json.Unmarshal([]byte(v), &extra) == nil {
			m.Metadata = extra
		}
	}
	return m
}
