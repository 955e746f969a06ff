package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/providers"
)

const maxHeuristicMemories = 3

// Extractor turns conversation text into candidate memories. The
// heuristic variant works offline; the assisted variant additionally
// consults the generation provider. Selected at construction time, so
// the pipeline never branches on a nil provider.
type Extractor interface {
	ExtractFromMessage(userMessage, botResponse, userID string) []Memory
	ExtractFromHistory(ctx context.Context, history []ConversationTurn, userID string) []Memory
}

// Keywords that mark a sentence as worth remembering.
var memoryKeywords = []string{
	"好き", "愛", "嫌い", "怖い", "欲しい", "夢", "目標",
	"仕事", "勉強", "家族", "友達", "誕生日", "記念日",
	"名前", "年齢", "住んでいる", "から来た", "専門", "趣味",
	"like", "love", "hate", "want", "dream", "goal",
	"work", "study", "family", "friend", "birthday",
}

var (
	preferenceWords = []string{"好き", "愛", "love", "like", "favorite"}
	eventWords      = []string{"誕生日", "anniversary", "event", "party"}
	emotionWords    = []string{"嬉しい", "悲しい", "怒り", "sad", "happy", "angry"}

	selfDisclosureMarkers = []string{"私は", "私の名前は", "私はから来た", "私はに住んでいる", "私は仕事", "私の"}
	strongEmotionWords    = []string{"愛", "憎しみ", "怖い", "夢", "love", "hate", "dream"}
)

// HeuristicExtractor is the provider-free extractor.
type HeuristicExtractor struct{}

func NewHeuristicExtractor() *HeuristicExtractor { return &HeuristicExtractor{} }

// ExtractFromMessage scans the combined turn text for keyword-bearing
// sentences, classifies and scores them, and returns at most three
// deduplicated candidates.
func (e *HeuristicExtractor) ExtractFromMessage(userMessage, botResponse, userID string) []Memory {
	combined := userMessage + " " + botResponse

	memories := []Memory{}
	seen := map[string]struct{}{}
	for _, sentence := range splitSentences(combined) {
		sentence = strings.TrimSpace(sentence)
		if len([]rune(sentence)) <= 5 {
			continue
		}
		if !containsAnyKeyword(sentence, memoryKeywords) {
			continue
		}
		if _, ok := seen[sentence]; ok {
			continue
		}
		seen[sentence] = struct{}{}

		memories = append(memories, Memory{
			ID:         ContentID(userID, sentence),
			Content:    sentence,
			Type:       classifyMemoryType(sentence),
			Importance: calculateImportance(sentence),
			UserID:     userID,
		})
		if len(memories) >= maxHeuristicMemories {
			break
		}
	}
	return memories
}

// ExtractFromHistory is a no-op for the heuristic extractor.
func (e *HeuristicExtractor) ExtractFromHistory(context.Context, []ConversationTurn, string) []Memory {
	return nil
}

// AssistedExtractor layers provider-based extraction on top of the
// heuristics.
type AssistedExtractor struct {
	HeuristicExtractor
	provider providers.LLMProvider
}

func NewAssistedExtractor(provider providers.LLMProvider) *AssistedExtractor {
	return &AssistedExtractor{provider: provider}
}

// ExtractFromHistory sends the last five turns to the provider and asks
// for structured memories. Needs at least three turns of history.
// Provider or parse failures are logged and yield an empty list.
func (e *AssistedExtractor) ExtractFromHistory(ctx context.Context, history []ConversationTurn, userID string) []Memory {
	if len(history) < 3 {
		return nil
	}
	recent := history
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	var transcript strings.Builder
	for _, turn := range recent {
		fmt.Fprintf(&transcript, "ユーザー：%s\nアシスタント：%s\n", turn.UserMessage, turn.BotResponse)
	}

	prompt := fmt.Sprintf(`以下の会話から長期的に記憶する価値のある情報を抽出してください：

%s

以下の情報を抽出してください：
1. ユーザーの個人情報（名前、年齢、職業など）
2. ユーザーの好みと嗜好
3. ユーザーが言及した重要な出来事
4. ユーザーの感情状態

JSON形式で出力：
{
    "memories": [
        {"content": "記憶内容", "type": "fact/preference/event/emotion", "importance": 0.8}
    ]
}

記憶に値する情報がない場合は、空の配列を返してください。`, transcript.String())

	resp, err := providers.Generate(ctx, e.provider, prompt, "", providers.GenerateOptions{})
	if err != nil {
		logger.ErrorCF("memory", "llm memory extraction failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}

	var parsed struct {
		Memories []struct {
			Content    string  `json:"content"`
			Type       string  `json:"type"`
			Importance float64 `json:"importance"`
		} `json:"memories"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		logger.ErrorCF("memory", "llm memory extraction returned malformed JSON", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil
	}

	memories := make([]Memory, 0, len(parsed.Memories))
	for _, mem := range parsed.Memories {
		if strings.TrimSpace(mem.Content) == "" {
			continue
		}
		memType := MemoryType(mem.Type)
		if mem.Type == "" {
			memType = TypeFact
		}
		importance := mem.Importance
		if importance <= 0 {
			importance = 0.5
		}
		memories = append(memories, Memory{
			ID:         ContentID(userID, mem.Content),
			Content:    mem.Content,
			Type:       memType,
			Importance: importance,
			UserID:     userID,
		})
	}
	return memories
}

func splitSentences(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '。', '！', '？', '!', '?', '\n':
			return true
		}
		return false
	})
}

func containsAnyKeyword(sentence string, keywords []string) bool {
	lowered := strings.ToLower(sentence)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func classifyMemoryType(sentence string) MemoryType {
	switch {
	case containsAnyKeyword(sentence, preferenceWords):
		return TypePreference
	case containsAnyKeyword(sentence, eventWords):
		return TypeEvent
	case containsAnyKeyword(sentence, emotionWords):
		return TypeEmotion
	default:
		return TypeFact
	}
}

// calculateImportance starts at 0.5 and rewards self-disclosure, strong
// emotion words and longer sentences, clamped to 1.0.
func calculateImportance(sentence string) float64 {
	importance := 0.5
	if containsAnyKeyword(sentence, selfDisclosureMarkers) {
		importance += 0.3
	}
	if containsAnyKeyword(sentence, strongEmotionWords) {
		importance += 0.2
	}
	if len([]rune(sentence)) > 50 {
		importance += 0.1
	}
	if importance > 1.0 {
		importance = 1.0
	}
	return importance
}
