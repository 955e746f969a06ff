package providers

import "context"

// Message is a provider-agnostic chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting for a completed generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is the normalized result of a generation call.
type LLMResponse struct {
	Content      string
	Model        string
	Usage        Usage
	FinishReason string
}

// GenerateOptions tunes a single generation call. Zero values fall back
// to provider defaults.
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// StreamHandler receives incremental text chunks during streaming.
type StreamHandler func(chunk string)

// LLMProvider is the text generation contract consumed by the core.
// Failures must be handled by every caller; the core degrades to logged
// no-ops or fallback strings rather than surfacing provider errors.
type LLMProvider interface {
	Name() string
	DefaultModel() string
	Chat(ctx context.Context, messages []Message, opts GenerateOptions) (*LLMResponse, error)
	ChatStream(ctx context.Context, messages []Message, opts GenerateOptions, onChunk StreamHandler) (*LLMResponse, error)
}

// Generate is the single-prompt convenience wrapper used by the memory
// and knowledge pipelines.
func Generate(ctx context.Context, p LLMProvider, prompt, systemPrompt string, opts GenerateOptions) (*LLMResponse, error) {
	return p.Chat(ctx, promptMessages(prompt, systemPrompt), opts)
}

// GenerateStream is the streaming variant of Generate.
func GenerateStream(ctx context.Context, p LLMProvider, prompt, systemPrompt string, opts GenerateOptions, onChunk StreamHandler) (*LLMResponse, error) {
	return p.ChatStream(ctx, promptMessages(prompt, systemPrompt), opts, onChunk)
}

func promptMessages(prompt, systemPrompt string) []Message {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})
	return messages
}
