package memory

import (
	"context"
	"testing"
)

func TestHeuristicExtractorPersonalFact(t *testing.T) {
	e := NewHeuristicExtractor()

	memories := e.ExtractFromMessage("私は東京から来た。", "そうなんだ、東京いいところだよね！", "user-1")
	if len(memories) == 0 {
		t.Fatal("expected at least one memory for a self-disclosure sentence")
	}

	m := memories[0]
	if m.Content != "私は東京から来た" {
		t.Fatalf("content = %q, want %q", m.Content, "私は東京から来た")
	}
	if m.Type != TypeFact {
		t.Fatalf("type = %q, want %q", m.Type, TypeFact)
	}
	if m.Importance != 0.8 {
		t.Fatalf("importance = %v, want 0.8", m.Importance)
	}
	if m.UserID != "user-1" {
		t.Fatalf("user id = %q, want user-1", m.UserID)
	}
	if m.ID != ContentID("user-1", m.Content) {
		t.Fatalf("id = %q, want content-derived id %q", m.ID, ContentID("user-1", m.Content))
	}
}

func TestHeuristicExtractorClassification(t *testing.T) {
	e := NewHeuristicExtractor()

	cases := []struct {
		message string
		want    MemoryType
	}{
		{"ラーメンが大好きなんだ", TypePreference},
		{"来月は私の誕生日だよ", TypeEvent},
		{"今日は仕事ですごく悲しいことがあった", TypeEmotion},
		{"仕事はエンジニアをしています", TypeFact},
	}
	for _, tc := range cases {
		memories := e.ExtractFromMessage(tc.message, "", "u")
		if len(memories) != 1 {
			t.Fatalf("ExtractFromMessage(%q) returned %d memories, want 1", tc.message, len(memories))
		}
		if memories[0].Type != tc.want {
			t.Fatalf("ExtractFromMessage(%q) type = %q, want %q", tc.message, memories[0].Type, tc.want)
		}
	}
}

func TestHeuristicExtractorSkipsShortAndKeywordlessSentences(t *testing.T) {
	e := NewHeuristicExtractor()

	if got := e.ExtractFromMessage("今日は天気がいいね。散歩した。", "いいね！", "u"); len(got) != 0 {
		t.Fatalf("expected no memories for keywordless chatter, got %d", len(got))
	}
	// Keyword present but sentence too short to be meaningful.
	if got := e.ExtractFromMessage("愛だ。", "", "u"); len(got) != 0 {
		t.Fatalf("expected no memories for a five-rune sentence, got %d", len(got))
	}
}

func TestHeuristicExtractorDedupesAndCaps(t *testing.T) {
	e := NewHeuristicExtractor()

	msg := "私は猫が好き。私は猫が好き。私は犬も好き。仕事はエンジニア。家族は四人です。趣味は読書。"
	memories := e.ExtractFromMessage(msg, "", "u")
	if len(memories) != maxHeuristicMemories {
		t.Fatalf("got %d memories, want cap of %d", len(memories), maxHeuristicMemories)
	}
	seen := map[string]struct{}{}
	for _, m := range memories {
		if _, ok := seen[m.Content]; ok {
			t.Fatalf("duplicate content extracted: %q", m.Content)
		}
		seen[m.Content] = struct{}{}
	}
}

func TestHeuristicExtractorHistoryIsNoop(t *testing.T) {
	e := NewHeuristicExtractor()
	history := []ConversationTurn{
		{UserMessage: "私は東京から来た", BotResponse: "いいね"},
		{UserMessage: "猫が好き", BotResponse: "かわいいよね"},
		{UserMessage: "仕事はエンジニア", BotResponse: "すごい"},
	}
	if got := e.ExtractFromHistory(context.Background(), history, "u"); got != nil {
		t.Fatalf("heuristic history extraction should return nil, got %v", got)
	}
}
