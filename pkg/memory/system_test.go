package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aika-bot/aika/pkg/vectorstore"
)

func newTestSystem(t *testing.T) *System {
	t.Helper()
	store, err := vectorstore.NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open vector store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	sys, err := NewSystem(store, NewHeuristicExtractor(), 10, 5)
	if err != nil {
		t.Fatalf("new memory system: %v", err)
	}
	return sys
}

func TestShortTermRingEviction(t *testing.T) {
	st := NewShortTerm(10)
	for i := 0; i < 11; i++ {
		st.AddTurn("u", fmt.Sprintf("message %d", i), fmt.Sprintf("reply %d", i), nil, nil)
	}

	turns := st.RecentContext("u", 0)
	if len(turns) != 10 {
		t.Fatalf("got %d turns, want 10", len(turns))
	}
	if turns[0].UserMessage != "message 1" {
		t.Fatalf("oldest turn = %q, want %q (turn 0 evicted)", turns[0].UserMessage, "message 1")
	}
	if turns[9].UserMessage != "message 10" {
		t.Fatalf("newest turn = %q, want %q", turns[9].UserMessage, "message 10")
	}
}

func TestShortTermContextStringEmpty(t *testing.T) {
	st := NewShortTerm(10)
	if got := st.ContextString("nobody", 5); got != "" {
		t.Fatalf("context for unknown user = %q, want empty", got)
	}
}

func TestShortTermIsolatesUsers(t *testing.T) {
	st := NewShortTerm(10)
	st.AddTurn("alice", "hello", "hi", nil, []string{"greeting"})
	st.AddTurn("bob", "yo", "hey", nil, nil)

	if got := len(st.RecentContext("alice", 0)); got != 1 {
		t.Fatalf("alice has %d turns, want 1", got)
	}
	st.Clear("alice")
	if got := len(st.RecentContext("alice", 0)); got != 0 {
		t.Fatalf("alice has %d turns after clear, want 0", got)
	}
	if got := len(st.RecentContext("bob", 0)); got != 1 {
		t.Fatalf("bob has %d turns, want 1", got)
	}
}

func TestProcessTurnPersistsExtractedMemories(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	if err := sys.ProcessTurn(ctx, "u1", "私は東京から来た。", "そうなんだ！", nil, nil); err != nil {
		t.Fatalf("process turn: %v", err)
	}

	profile, err := sys.UserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("user profile: %v", err)
	}
	if len(profile.Facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(profile.Facts))
	}
	if profile.Facts[0].Content != "私は東京から来た" {
		t.Fatalf("fact content = %q", profile.Facts[0].Content)
	}
}

func TestProcessTurnIsIdempotentPerContent(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := sys.ProcessTurn(ctx, "u1", "私は猫が好きだよ。", "知ってる！", nil, nil); err != nil {
			t.Fatalf("process turn %d: %v", i, err)
		}
	}

	profile, err := sys.UserProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("user profile: %v", err)
	}
	total := len(profile.Facts) + len(profile.Preferences) + len(profile.Events) + len(profile.Emotions)
	if total != 1 {
		t.Fatalf("got %d memories after repeated identical turns, want 1", total)
	}
}

func TestContextForResponseBlocks(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	if err := sys.ProcessTurn(ctx, "u1", "私は東京から来た。", "東京いいね！", nil, nil); err != nil {
		t.Fatalf("process turn: %v", err)
	}

	got := sys.ContextForResponse(ctx, "u1", "どこ出身だっけ？")
	if !strings.Contains(got, "【最近の会話】") {
		t.Fatalf("context missing short-term block:\n%s", got)
	}
	if !strings.Contains(got, "【関連する記憶】") {
		t.Fatalf("context missing long-term block:\n%s", got)
	}
	if !strings.Contains(got, "私は東京から来た") {
		t.Fatalf("context missing stored memory:\n%s", got)
	}
}

func TestContextForResponseOmitsEmptyBlocks(t *testing.T) {
	sys := newTestSystem(t)

	got := sys.ContextForResponse(context.Background(), "unknown", "hi")
	if got != "" {
		t.Fatalf("context for unknown user = %q, want empty", got)
	}
}

func TestRetrieveRelevantFiltersByUserAndImportance(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()
	lt := sys.LongTerm()

	seed := []Memory{
		{ID: ContentID("u1", "a"), Content: "ユーザーは東京出身", Type: TypeFact, Importance: 0.9, UserID: "u1"},
		{ID: ContentID("u1", "b"), Content: "ユーザーは雨が苦手", Type: TypeFact, Importance: 0.2, UserID: "u1"},
		{ID: ContentID("u2", "c"), Content: "別のユーザーは大阪出身", Type: TypeFact, Importance: 0.9, UserID: "u2"},
	}
	if err := lt.AddMemories(ctx, seed); err != nil {
		t.Fatalf("seed memories: %v", err)
	}

	got, err := lt.RetrieveRelevant(ctx, "出身はどこ？", "u1", 5, nil, 0.5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, m := range got {
		if m.UserID != "u1" {
			t.Fatalf("retrieved memory for wrong user: %+v", m)
		}
		if m.Importance < 0.5 {
			t.Fatalf("retrieved memory below importance cut: %+v", m)
		}
	}
	if len(got) != 1 {
		t.Fatalf("got %d memories, want 1", len(got))
	}
}

func TestAddExplicitMemoryDefaults(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	if err := sys.AddExplicitMemory(ctx, "u1", "記念日は6月1日", "", 0); err != nil {
		t.Fatalf("add explicit memory: %v", err)
	}
	memories, err := sys.LongTerm().UserMemories(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("user memories: %v", err)
	}
	if len(memories) != 1 {
		t.Fatalf("got %d memories, want 1", len(memories))
	}
	if memories[0].Type != TypeFact {
		t.Fatalf("type = %q, want default fact", memories[0].Type)
	}
	if memories[0].Importance != 0.8 {
		t.Fatalf("importance = %v, want default 0.8", memories[0].Importance)
	}
}

func TestConsolidateRequiresEnoughMemories(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()

	if err := sys.LongTerm().AddMemory(ctx, Memory{
		ID: ContentID("u1", "x"), Content: "ユーザーは東京出身", Type: TypeFact, Importance: 0.8, UserID: "u1",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Below the threshold, consolidation is a no-op even without a provider.
	if err := sys.Consolidate(ctx, "u1", nil); err != nil {
		t.Fatalf("consolidate: %v", err)
	}
	memories, err := sys.LongTerm().UserMemories(ctx, "u1", []MemoryType{TypeConsolidatedFact})
	if err != nil {
		t.Fatalf("user memories: %v", err)
	}
	if len(memories) != 0 {
		t.Fatalf("got %d consolidated memories, want 0", len(memories))
	}
}

func TestContentIDStableAndShort(t *testing.T) {
	a := ContentID("u1", "私は東京から来た")
	b := ContentID("u1", "私は東京から来た")
	c := ContentID("u2", "私は東京から来た")
	if a != b {
		t.Fatalf("same inputs produced different ids: %q vs %q", a, b)
	}
	if a == c {
		t.Fatal("different users produced the same id")
	}
	if len(a) != 16 {
		t.Fatalf("id length = %d, want 16", len(a))
	}
}
