package knowledge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/providers"
)

var (
	learnerPreferenceWords = []string{"好き", "愛", "好み", "大好き", "嫌い", "苦手", "嫌悪", "反感"}
	learnerPatternWords    = []string{"朝", "夜", "毎日", "よく", "いつも", "習慣"}
	learnerFactMarkers     = []string{"私は", "私の名前は", "私はから来た", "私はに住んでいる", "私は仕事"}
	learnerFactPrefixes    = []string{"私は", "私の", "私の名前は"}
	learnerEmotionWords    = []string{"嬉しい", "悲しい", "怒り", "失望", "興奮", "不安", "怖い"}
	learnerTriggerWords    = []string{"とき", "もし", "させて"}
)

// Learner derives insights from knowledge items with keyword passes,
// plus an optional provider-backed deep pass.
type Learner struct {
	provider providers.LLMProvider
}

func NewLearner(provider providers.LLMProvider) *Learner {
	return &Learner{provider: provider}
}

// LearnFromItems runs the four heuristic passes over the items:
// preferences, behavior patterns, personal facts, emotion rules.
func (l *Learner) LearnFromItems(items []Item) []Insight {
	insights := []Insight{}
	insights = append(insights, l.extractPreferences(items)...)
	insights = append(insights, l.discoverPatterns(items)...)
	insights = append(insights, l.extractFacts(items)...)
	insights = append(insights, l.understandEmotions(items)...)
	return insights
}

func (l *Learner) extractPreferences(items []Item) []Insight {
	insights := []Insight{}
	for _, item := range items {
		for _, keyword := range learnerPreferenceWords {
			if !strings.Contains(item.Content, keyword) {
				continue
			}
			for _, sent := range contentSentences(item.Content) {
				if strings.Contains(sent, keyword) {
					insights = append(insights, newInsight("pref", InsightPreference, sent, 0.7, item.ID))
				}
			}
		}
	}
	return insights
}

func (l *Learner) discoverPatterns(items []Item) []Insight {
	insights := []Insight{}
	for _, item := range items {
		for _, pattern := range learnerPatternWords {
			if !strings.Contains(item.Content, pattern) {
				continue
			}
			for _, sent := range contentSentences(item.Content) {
				if strings.Contains(sent, pattern) {
					insights = append(insights, newInsight("pattern", InsightPattern, sent, 0.6, item.ID))
				}
			}
		}
	}
	return insights
}

func (l *Learner) extractFacts(items []Item) []Insight {
	insights := []Insight{}
	for _, item := range items {
		if !containsAny(item.Content, learnerFactMarkers) {
			continue
		}
		for _, sent := range splitSentences(item.Content) {
			if hasAnyPrefix(sent, learnerFactPrefixes) {
				insights = append(insights, newInsight("fact", InsightFact, sent, 0.8, item.ID))
			}
		}
	}
	return insights
}

func (l *Learner) understandEmotions(items []Item) []Insight {
	insights := []Insight{}
	for _, item := range items {
		for _, emotion := range learnerEmotionWords {
			if !strings.Contains(item.Content, emotion) {
				continue
			}
			for _, sent := range splitSentences(item.Content) {
				if strings.Contains(sent, emotion) && containsAny(sent, learnerTriggerWords) {
					insights = append(insights, newInsight("emotion", InsightEmotionRule, sent, 0.65, item.ID))
				}
			}
		}
	}
	return insights
}

// DeepLearn asks the provider to analyze up to ten items and returns
// the structured findings as high-confidence insights. Without a
// provider, or on any failure, the result is empty.
func (l *Learner) DeepLearn(ctx context.Context, items []Item) []Insight {
	if l.provider == nil || len(items) == 0 {
		return nil
	}

	limited := items
	if len(limited) > 10 {
		limited = limited[:10]
	}
	contents := make([]string, 0, len(limited))
	itemIDs := make([]string, 0, len(items))
	for _, item := range limited {
		contents = append(contents, item.Content)
	}
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
	}

	prompt := `以下のユーザー情報に基づいて、重要な洞察を分析・抽出してください：

` + strings.Join(contents, "\n") + `

以下の点を分析してください：
1. ユーザーの性格特徴
2. ユーザーの趣味・興味と好み
3. ユーザーの行動パターン
4. ユーザーの感情トリガーポイント
5. ユーザーとの付き合い方のアドバイス

JSON形式で出力：
{
    "personality_traits": ["特徴1", "特徴2"],
    "preferences": ["好み1", "好み2"],
    "patterns": ["パターン1", "パターン2"],
    "emotional_triggers": ["トリガーポイント1"],
    "interaction_tips": ["アドバイス1", "アドバイス2"]
}`

	resp, err := providers.Generate(ctx, l.provider, prompt, "", providers.GenerateOptions{})
	if err != nil {
		logger.ErrorCF("knowledge", "deep learning failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	var analysis map[string][]string
	if err := json.Unmarshal([]byte(resp.Content), &analysis); err != nil {
		logger.ErrorCF("knowledge", "deep learning returned malformed JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	insights := []Insight{}
	for category, entries := range analysis {
		for _, content := range entries {
			insights = append(insights, Insight{
				ID:           insightID("llm:"+category, content),
				KnowledgeIDs: itemIDs,
				Type:         InsightType(category),
				Content:      content,
				Confidence:   0.85,
				CreatedAt:    time.Now(),
			})
		}
	}
	return insights
}

func newInsight(kind string, insightType InsightType, sentence string, confidence float64, itemID string) Insight {
	sentence = strings.TrimSpace(sentence)
	return Insight{
		ID:           insightID(kind, sentence),
		KnowledgeIDs: []string{itemID},
		Type:         insightType,
		Content:      sentence,
		Confidence:   confidence,
		CreatedAt:    time.Now(),
	}
}

// contentSentences keeps only sentences long enough to carry meaning.
// Used by the preference and pattern passes; the fact and emotion
// passes accept any matching sentence, however short.
func contentSentences(content string) []string {
	out := []string{}
	for _, sent := range splitSentences(content) {
		if len([]rune(sent)) > 10 {
			out = append(out, sent)
		}
	}
	return out
}

func splitSentences(content string) []string {
	out := []string{}
	for _, sent := range strings.Split(content, "。") {
		if strings.TrimSpace(sent) == "" {
			continue
		}
		out = append(out, sent)
	}
	return out
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	s = strings.TrimSpace(s)
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
