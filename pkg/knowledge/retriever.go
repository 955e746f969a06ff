package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

const (
	knowledgeCollection  = "knowledge"
	defaultMinSimilarity = 0.5
)

// Retriever indexes knowledge items in the vector store and surfaces
// the relevant ones during conversation.
type Retriever struct {
	coll vectorstore.Collection
}

func NewRetriever(store vectorstore.Store) (*Retriever, error) {
	coll, err := store.Collection(knowledgeCollection)
	if err != nil {
		return nil, fmt.Errorf("open knowledge collection: %w", err)
	}
	return &Retriever{coll: coll}, nil
}

// AddItems indexes a batch of knowledge items.
func (r *Retriever) AddItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	documents := make([]string, 0, len(items))
	metadatas := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
		documents = append(documents, item.Content)
		metadatas = append(metadatas, map[string]interface{}{
			"source":     item.Source,
			"category":   item.Category,
			"importance": item.Importance,
		})
	}
	if err := r.coll.Add(ctx, ids, documents, metadatas); err != nil {
		return err
	}
	logger.InfoCF("knowledge", "indexed knowledge items", map[string]interface{}{
		"count": len(items),
	})
	return nil
}

// IndexedCount reports how many knowledge items are in the index.
func (r *Retriever) IndexedCount(ctx context.Context) (int, error) {
	return r.coll.Count(ctx)
}

// RetrieveRelevant runs a similarity search and keeps only hits at or
// above minSimilarity, where similarity is 1 minus the reported
// distance.
func (r *Retriever) RetrieveRelevant(ctx context.Context, query string, n int, minSimilarity float64) ([]Item, error) {
	matches, err := r.coll.Query(ctx, query, n, nil)
	if err != nil {
		return nil, err
	}

	items := []Item{}
	for _, match := range matches {
		similarity := 1 - match.Distance
		if similarity < minSimilarity {
			continue
		}
		item := Item{
			ID:         match.ID,
			Content:    match.Document,
			Source:     "unknown",
			SourceType: SourceRetrieved,
			Category:   "general",
			Importance: 1.0,
		}
		if v, ok := match.Metadata["source"].(string); ok && v != "" {
			item.Source = v
		}
		if v, ok := match.Metadata["category"].(string); ok && v != "" {
			item.Category = v
		}
		if v, ok := match.Metadata["importance"].(float64); ok {
			item.Importance = v
		}
		items = append(items, item)
	}
	return items, nil
}

// ConversationContext builds the knowledge block for a reply: up to
// three relevant items plus the usage hint, or "" when nothing is
// relevant enough.
func (r *Retriever) ConversationContext(ctx context.Context, userMessage string) (string, error) {
	relevant, err := r.RetrieveRelevant(ctx, userMessage, 3, defaultMinSimilarity)
	if err != nil {
		return "", err
	}
	if len(relevant) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("【関連する記憶】\n")
	for _, item := range relevant {
		fmt.Fprintf(&b, "- %s\n", item.Content)
	}
	b.WriteString("\n【適用ヒント】\n")
	b.WriteString("返信の中で上記の関連情報を自然に活用するが、直接引用しないでください。\n")
	return b.String(), nil
}
