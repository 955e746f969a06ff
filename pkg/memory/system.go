package memory

import (
	"context"
	"strings"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/providers"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

// Profile buckets a user's long-term memories by type.
type Profile struct {
	Facts       []Memory `json:"facts"`
	Preferences []Memory `json:"preferences"`
	Events      []Memory `json:"events"`
	Emotions    []Memory `json:"emotions"`
}

// System composes the short-term ring, the long-term store and the
// extractor into the memory pipeline for one process.
type System struct {
	shortTerm  *ShortTerm
	longTerm   *LongTerm
	extractor  Extractor
	retrievalK int
}

func NewSystem(store vectorstore.Store, extractor Extractor, shortTermLimit, retrievalK int) (*System, error) {
	longTerm, err := NewLongTerm(store)
	if err != nil {
		return nil, err
	}
	if extractor == nil {
		extractor = NewHeuristicExtractor()
	}
	if retrievalK <= 0 {
		retrievalK = 5
	}
	return &System{
		shortTerm:  NewShortTerm(shortTermLimit),
		longTerm:   longTerm,
		extractor:  extractor,
		retrievalK: retrievalK,
	}, nil
}

func (s *System) ShortTerm() *ShortTerm { return s.shortTerm }
func (s *System) LongTerm() *LongTerm   { return s.longTerm }

// ProcessTurn records the exchange in the short-term ring, extracts
// candidate memories from it and persists them. Extraction finding
// nothing is the common case, not an error.
func (s *System) ProcessTurn(ctx context.Context, userID, userMessage, botResponse string, emotionalContext map[string]interface{}, topics []string) error {
	s.shortTerm.AddTurn(userID, userMessage, botResponse, emotionalContext, topics)

	extracted := s.extractor.ExtractFromMessage(userMessage, botResponse, userID)
	if history := s.shortTerm.RecentContext(userID, 0); len(history) >= 3 {
		extracted = append(extracted, s.extractor.ExtractFromHistory(ctx, history, userID)...)
	}
	if len(extracted) == 0 {
		return nil
	}

	if err := s.longTerm.AddMemories(ctx, extracted); err != nil {
		return err
	}
	logger.DebugCF("memory", "extracted memories stored", map[string]interface{}{
		"user_id": userID,
		"count":   len(extracted),
	})
	return nil
}

// ContextForResponse builds the memory portion of the generation
// prompt: the short-term transcript followed by relevant long-term
// memories. Either block is omitted when empty.
func (s *System) ContextForResponse(ctx context.Context, userID, currentMessage string) string {
	parts := []string{}

	if short := s.shortTerm.ContextString(userID, s.retrievalK); short != "" {
		parts = append(parts, short)
	}

	relevant, err := s.longTerm.RetrieveRelevant(ctx, currentMessage, userID, s.retrievalK, nil, 0)
	if err != nil {
		logger.WarnCF("memory", "long-term retrieval failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	if len(relevant) > 0 {
		var b strings.Builder
		b.WriteString("【関連する記憶】\n")
		for _, m := range relevant {
			b.WriteString("・" + m.Content + "\n")
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "\n")
}

// UserProfile returns all of a user's long-term memories bucketed by
// type. Consolidated facts land in the facts bucket.
func (s *System) UserProfile(ctx context.Context, userID string) (*Profile, error) {
	memories, err := s.longTerm.UserMemories(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	profile := &Profile{}
	for _, m := range memories {
		switch m.Type {
		case TypePreference:
			profile.Preferences = append(profile.Preferences, m)
		case TypeEvent:
			profile.Events = append(profile.Events, m)
		case TypeEmotion:
			profile.Emotions = append(profile.Emotions, m)
		default:
			profile.Facts = append(profile.Facts, m)
		}
	}
	return profile, nil
}

// AddExplicitMemory stores a memory the user asked to keep, at high
// importance unless overridden.
func (s *System) AddExplicitMemory(ctx context.Context, userID, content string, memType MemoryType, importance float64) error {
	if memType == "" {
		memType = TypeFact
	}
	if importance <= 0 {
		importance = 0.8
	}
	return s.longTerm.AddMemory(ctx, Memory{
		ID:         ContentID(userID, content),
		Content:    content,
		Type:       memType,
		Importance: importance,
		UserID:     userID,
	})
}

// Consolidate summarizes a user's accumulated facts via the provider.
func (s *System) Consolidate(ctx context.Context, userID string, provider providers.LLMProvider) error {
	return s.longTerm.Consolidate(ctx, userID, provider)
}

// ClearShortTerm drops one user's conversation buffer. Long-term
// memories are unaffected.
func (s *System) ClearShortTerm(userID string) {
	s.shortTerm.Clear(userID)
}
