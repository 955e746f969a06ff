package knowledge

import (
	"context"
	"fmt"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/providers"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

// SourceKind selects what ImportAndLearn treats its source argument as.
type SourceKind string

const (
	KindFile      SourceKind = "file"
	KindDirectory SourceKind = "directory"
	KindText      SourceKind = "text"
)

// ImportResult summarizes one import-and-learn run.
type ImportResult struct {
	ImportedCount  int            `json:"imported_count"`
	InsightsCount  int            `json:"insights_count"`
	InsightsByType map[string]int `json:"insights_by_type"`
}

// System wires importer, learner, integrator and retriever into the
// full knowledge pipeline.
type System struct {
	importer   *Importer
	learner    *Learner
	integrator *Integrator
	retriever  *Retriever
}

func NewSystem(store vectorstore.Store, provider providers.LLMProvider, baseDir, personaConfigPath string) (*System, error) {
	importer, err := NewImporter(baseDir)
	if err != nil {
		return nil, err
	}
	retriever, err := NewRetriever(store)
	if err != nil {
		return nil, err
	}
	return &System{
		importer:   importer,
		learner:    NewLearner(provider),
		integrator: NewIntegrator(personaConfigPath),
		retriever:  retriever,
	}, nil
}

func (s *System) Integrator() *Integrator { return s.integrator }
func (s *System) Retriever() *Retriever   { return s.retriever }

// ImportAndLearn runs the full pipeline for one source: import, index,
// heuristic learning, optional deep learning, persona integration.
func (s *System) ImportAndLearn(ctx context.Context, source string, kind SourceKind, category string) (*ImportResult, error) {
	var items []Item
	var err error
	switch kind {
	case KindFile:
		items, err = s.importer.ImportFile(source, category)
	case KindDirectory:
		items, err = s.importer.ImportDirectory(source, category)
	case KindText:
		var item Item
		item, err = s.importer.ImportText(source, "manual_input", category)
		items = []Item{item}
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
	if err != nil {
		return nil, err
	}

	logger.InfoCF("knowledge", "imported knowledge items", map[string]interface{}{
		"count": len(items),
	})

	if err := s.retriever.AddItems(ctx, items); err != nil {
		return nil, err
	}

	insights := s.learner.LearnFromItems(items)
	if len(items) >= 3 {
		insights = append(insights, s.learner.DeepLearn(ctx, items)...)
	}

	if err := s.integrator.IntegrateInsights(insights); err != nil {
		return nil, err
	}

	return &ImportResult{
		ImportedCount:  len(items),
		InsightsCount:  len(insights),
		InsightsByType: countByType(insights),
	}, nil
}

// LearnFromConversation treats one exchange as a knowledge item and
// folds anything learnable into the persona. Returns how many insights
// were gained.
func (s *System) LearnFromConversation(ctx context.Context, userMessage, botResponse, userID string) (int, error) {
	combined := fmt.Sprintf("ユーザーが言った：%s\n私が返信：%s", userMessage, botResponse)
	item := Item{
		ID:         hashID("conv:" + userID + ":" + runePrefix(combined, 100)),
		Content:    combined,
		Source:     "conversation:" + userID,
		SourceType: SourceConversation,
		Category:   "interaction",
		Importance: 1.0,
	}

	insights := s.learner.LearnFromItems([]Item{item})
	if len(insights) == 0 {
		return 0, nil
	}
	if err := s.integrator.IntegrateInsights(insights); err != nil {
		return 0, err
	}
	return len(insights), nil
}

// EnhancedContext returns the knowledge block for replying to a
// message.
func (s *System) EnhancedContext(ctx context.Context, userMessage string) (string, error) {
	return s.retriever.ConversationContext(ctx, userMessage)
}

// IndexedCount reports how many knowledge items are searchable.
func (s *System) IndexedCount(ctx context.Context) (int, error) {
	return s.retriever.IndexedCount(ctx)
}

// LearningSummary reports per-bucket learned totals.
func (s *System) LearningSummary() map[string]int {
	return s.integrator.Summary()
}

func countByType(insights []Insight) map[string]int {
	counts := map[string]int{}
	for _, insight := range insights {
		counts[string(insight.Type)]++
	}
	return counts
}
