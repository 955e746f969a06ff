package agent

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/memory"
	"github.com/aika-bot/aika/pkg/persona"
	"github.com/aika-bot/aika/pkg/providers"
	"github.com/aika-bot/aika/pkg/vectorstore"
)

type stubProvider struct {
	reply string
	err   error
}

func (p *stubProvider) Name() string         { return "stub" }
func (p *stubProvider) DefaultModel() string { return "stub-model" }

func (p *stubProvider) Chat(ctx context.Context, messages []providers.Message, opts providers.GenerateOptions) (*providers.LLMResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &providers.LLMResponse{Content: p.reply, Model: "stub-model"}, nil
}

func (p *stubProvider) ChatStream(ctx context.Context, messages []providers.Message, opts providers.GenerateOptions, onChunk providers.StreamHandler) (*providers.LLMResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	if onChunk != nil {
		onChunk(p.reply)
	}
	return &providers.LLMResponse{Content: p.reply, Model: "stub-model"}, nil
}

func newTestGenerator(t *testing.T, provider providers.LLMProvider) (*Generator, *affection.System, *memory.System) {
	t.Helper()

	dataDir := t.TempDir()
	affectionSys, err := affection.NewSystem(dataDir, nil)
	if err != nil {
		t.Fatalf("new affection system: %v", err)
	}

	store, err := vectorstore.NewSQLiteStore(filepath.Join(t.TempDir(), "vectors.db"))
	if err != nil {
		t.Fatalf("open vector store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	memorySys, err := memory.NewSystem(store, memory.NewHeuristicExtractor(), 10, 5)
	if err != nil {
		t.Fatalf("new memory system: %v", err)
	}

	personaPath := filepath.Join(t.TempDir(), "persona_default.yaml")
	if err := persona.EnsureDefault(personaPath); err != nil {
		t.Fatalf("ensure persona: %v", err)
	}
	loader, err := persona.NewLoader(personaPath)
	if err != nil {
		t.Fatalf("load persona: %v", err)
	}

	gen := NewGenerator(provider, loader, affectionSys, memorySys, nil, NewStyler(rand.New(rand.NewSource(1))), providers.GenerateOptions{})
	return gen, affectionSys, memorySys
}

func TestRespondUpdatesMemoryAndAffection(t *testing.T) {
	gen, affectionSys, memorySys := newTestGenerator(t, &stubProvider{reply: "えへへ、ありがとう！"})
	ctx := context.Background()

	initial := affectionSys.GetState("u1").Score

	reply, err := gen.Respond(ctx, "u1", "今日もかわいいね、大好きだよ", 0)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply.Text == "" {
		t.Fatal("empty reply text")
	}
	if !strings.HasPrefix(reply.Text, "えへへ、ありがとう") {
		t.Fatalf("reply text lost provider content: %q", reply.Text)
	}
	if reply.Score <= initial {
		t.Fatalf("score = %v, want above initial %v for a compliment", reply.Score, initial)
	}

	turns := memorySys.ShortTerm().RecentContext("u1", 0)
	if len(turns) != 1 {
		t.Fatalf("got %d short-term turns, want 1", len(turns))
	}
	if turns[0].UserMessage != "今日もかわいいね、大好きだよ" {
		t.Fatalf("recorded user message = %q", turns[0].UserMessage)
	}
}

func TestRespondFallsBackOnProviderError(t *testing.T) {
	gen, affectionSys, _ := newTestGenerator(t, &stubProvider{err: errors.New("upstream down")})
	ctx := context.Background()

	initial := affectionSys.GetState("u1").Score

	reply, err := gen.Respond(ctx, "u1", "こんにちは", 0)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if reply.Text != "考えさせて..." {
		t.Fatalf("fallback text = %q", reply.Text)
	}
	if reply.Score != initial {
		t.Fatalf("score changed on fallback: %v -> %v", initial, reply.Score)
	}
}

func TestRespondStreamDeliversChunks(t *testing.T) {
	gen, _, _ := newTestGenerator(t, &stubProvider{reply: "うん、元気だよ！"})
	ctx := context.Background()

	chunks := []string{}
	reply, err := gen.RespondStream(ctx, "u1", "元気？", 0, func(chunk string) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("respond stream: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks delivered")
	}
	if !strings.HasPrefix(reply.Text, "うん、元気だよ") {
		t.Fatalf("final text = %q", reply.Text)
	}
}

func TestStylerKeepsOriginalTextPrefix(t *testing.T) {
	styler := NewStyler(rand.New(rand.NewSource(42)))
	lvl := affection.LevelForScore(90)

	for i := 0; i < 50; i++ {
		got := styler.Apply("こんにちは", lvl)
		if !strings.HasPrefix(got, "こんにちは") {
			t.Fatalf("styled text lost original content: %q", got)
		}
	}
}

func TestTypingParamsByLevel(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	cold := TypingParamsFor("はい", affection.LevelForScore(5), rng)
	if cold.Speed != "slow" || cold.Thinking != "long" {
		t.Fatalf("cold params = %+v, want slow/long", cold)
	}
	if cold.Duration < 5*time.Second || cold.Duration > 10*time.Second {
		t.Fatalf("cold duration = %v, want within thinking bounds", cold.Duration)
	}

	warm := TypingParamsFor("はい", affection.LevelForScore(90), rng)
	if warm.Speed != "fast" || warm.Thinking != "short" {
		t.Fatalf("warm params = %+v, want fast/short", warm)
	}

	long := TypingParamsFor(strings.Repeat("あ", 150), affection.LevelForScore(90), rng)
	if long.Speed != "slow" {
		t.Fatalf("long message speed = %q, want slow", long.Speed)
	}
}

func TestInitiativeNeverWhileSulking(t *testing.T) {
	_, affectionSys, memorySys := newTestGenerator(t, &stubProvider{reply: "x"})

	// A hard insult at low score starts a sulk.
	affectionSys.Update("u1", "insult", affection.Context{})
	if !affectionSys.GetState("u1").IsIgnoring {
		t.Fatal("expected user to be in sulk state")
	}

	in := NewInitiative(affectionSys, memorySys.ShortTerm(), NewStyler(rand.New(rand.NewSource(1))), rand.New(rand.NewSource(1)))
	for i := 0; i < 20; i++ {
		if in.ShouldInitiate("u1", 180) {
			t.Fatal("initiated while sulking")
		}
	}
}

func TestInitiativeGeneratesStyledMessage(t *testing.T) {
	_, affectionSys, memorySys := newTestGenerator(t, &stubProvider{reply: "x"})

	in := NewInitiative(affectionSys, memorySys.ShortTerm(), NewStyler(rand.New(rand.NewSource(1))), rand.New(rand.NewSource(1)))
	msg := in.Generate("u1")
	if msg == "" {
		t.Fatal("empty initiative message")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	_, affectionSys, memorySys := newTestGenerator(t, &stubProvider{reply: "x"})

	s := NewScheduler(affectionSys, memorySys, nil, "not a cron", "0 4 * * *")
	s.Start(context.Background())
	s.Stop()

	// Manual runs work regardless of the tick loop.
	s.RunDecay()
	s.RunConsolidation(context.Background())
}
