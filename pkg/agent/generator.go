package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/knowledge"
	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/memory"
	"github.com/aika-bot/aika/pkg/persona"
	"github.com/aika-bot/aika/pkg/providers"
)

const (
	replyTemperature = 0.8
	replyMaxTokens   = 500
)

// Reply is one generated response plus the relationship state it left
// behind.
type Reply struct {
	Text     string
	Score    float64
	Feedback string
}

// Generator assembles the full prompt from persona, learned knowledge,
// affection state and both memory layers, calls the provider and runs
// the post-processing pipeline.
type Generator struct {
	provider  providers.LLMProvider
	persona   *persona.Loader
	affection *affection.System
	memory    *memory.System
	knowledge *knowledge.System
	styler    *Styler
	opts      providers.GenerateOptions
}

// NewGenerator wires the generation pipeline. Zero fields in opts fall
// back to the built-in reply tuning.
func NewGenerator(
	provider providers.LLMProvider,
	personaLoader *persona.Loader,
	affectionSys *affection.System,
	memorySys *memory.System,
	knowledgeSys *knowledge.System,
	styler *Styler,
	opts providers.GenerateOptions,
) *Generator {
	if styler == nil {
		styler = NewStyler(nil)
	}
	if opts.Temperature <= 0 {
		opts.Temperature = replyTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = replyMaxTokens
	}
	return &Generator{
		provider:  provider,
		persona:   personaLoader,
		affection: affectionSys,
		memory:    memorySys,
		knowledge: knowledgeSys,
		styler:    styler,
		opts:      opts,
	}
}

// Respond generates the reply to one user message and folds the turn
// back into memory and affection. Provider failure degrades to a
// level-appropriate fallback line; the turn still counts.
func (g *Generator) Respond(ctx context.Context, userID, userMessage string, responseTimeSeconds float64) (*Reply, error) {
	return g.respond(ctx, userID, userMessage, responseTimeSeconds, nil)
}

// RespondStream is Respond with incremental chunks. The chunks carry
// the raw provider output; styling lands only in the final text.
func (g *Generator) RespondStream(ctx context.Context, userID, userMessage string, responseTimeSeconds float64, onChunk providers.StreamHandler) (*Reply, error) {
	return g.respond(ctx, userID, userMessage, responseTimeSeconds, onChunk)
}

func (g *Generator) respond(ctx context.Context, userID, userMessage string, responseTimeSeconds float64, onChunk providers.StreamHandler) (*Reply, error) {
	state := g.affection.GetState(userID)
	lvl := g.affection.GetLevel(userID)

	systemPrompt := g.buildSystemPrompt(userID)
	conversationContext := g.buildContext(ctx, userID, userMessage)

	prompt := fmt.Sprintf("%s\n\nユーザーが言う：%s\n\n返信してください：", conversationContext, userMessage)

	var resp *providers.LLMResponse
	var err error
	if onChunk != nil {
		resp, err = providers.GenerateStream(ctx, g.provider, prompt, systemPrompt, g.opts, onChunk)
	} else {
		resp, err = providers.Generate(ctx, g.provider, prompt, systemPrompt, g.opts)
	}
	if err != nil {
		logger.ErrorCF("agent", "reply generation failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return &Reply{Text: fallbackResponse(lvl), Score: state.Score}, nil
	}

	text := g.styler.Apply(strings.TrimSpace(resp.Content), lvl)

	if err := g.memory.ProcessTurn(ctx, userID, userMessage, text, nil, nil); err != nil {
		logger.WarnCF("agent", "memory update failed", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
	if g.knowledge != nil {
		if _, err := g.knowledge.LearnFromConversation(ctx, userMessage, text, userID); err != nil {
			logger.WarnCF("agent", "conversation learning failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}

	score, feedback, _ := g.affection.ProcessMessage(userID, userMessage, responseTimeSeconds)

	return &Reply{Text: text, Score: score, Feedback: feedback}, nil
}

func (g *Generator) buildSystemPrompt(userID string) string {
	base := g.persona.SystemPrompt()

	enhanced := base
	if g.knowledge != nil {
		enhanced = g.knowledge.Integrator().EnhancedSystemPrompt(base)
	}

	if hint := g.affection.PromptHint(userID); hint != "" {
		enhanced += "\n\n【現在の状態】\n" + hint
	}
	return enhanced
}

func (g *Generator) buildContext(ctx context.Context, userID, userMessage string) string {
	parts := []string{}

	if memoryContext := g.memory.ContextForResponse(ctx, userID, userMessage); memoryContext != "" {
		parts = append(parts, memoryContext)
	}
	if g.knowledge != nil {
		knowledgeContext, err := g.knowledge.EnhancedContext(ctx, userMessage)
		if err != nil {
			logger.WarnCF("agent", "knowledge retrieval failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		} else if knowledgeContext != "" {
			parts = append(parts, knowledgeContext)
		}
	}

	return strings.Join(parts, "\n\n")
}

var fallbacks = map[string]string{
	"Stranger":     "うーん...何て言えばいいかわからない",
	"Acquaintance": "考えさせて...",
	"Friend":       "あ、今ぼんやりしてた、もう一度言ってくれる？",
	"Close Friend": "へへ、今考え事してた",
	"Crush":        "今あなたのことを考えてたの～",
	"Lover":        "あなたが何を言っても、私は全部好きだよ～",
	"Soulmate":     "何があっても、私はあなたのそばにいる",
}

func fallbackResponse(lvl affection.Level) string {
	if fallback, ok := fallbacks[lvl.Name]; ok {
		return fallback
	}
	return "考えさせて..."
}
