package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 300 * time.Second

// chatCompletionsProvider speaks the OpenAI-compatible chat completions
// dialect shared by OpenRouter, OpenAI and most self-hosted gateways.
type chatCompletionsProvider struct {
	providerName string
	apiBase      string
	apiKey       string
	defaultModel string
	httpClient   *http.Client
}

func newChatCompletionsProvider(providerName, apiBase, apiKey, defaultModel, proxy string) (*chatCompletionsProvider, error) {
	providerName = strings.TrimSpace(strings.ToLower(providerName))
	if providerName == "" {
		return nil, fmt.Errorf("provider name is required")
	}
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		return nil, fmt.Errorf("%s API base not configured", providerName)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%s API key not configured", providerName)
	}

	client := &http.Client{Timeout: defaultHTTPTimeout}
	proxy = strings.TrimSpace(proxy)
	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse %s proxy: %w", providerName, err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}

	return &chatCompletionsProvider{
		providerName: providerName,
		apiBase:      apiBase,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		httpClient:   client,
	}, nil
}

func (p *chatCompletionsProvider) Name() string         { return p.providerName }
func (p *chatCompletionsProvider) DefaultModel() string { return p.defaultModel }

func (p *chatCompletionsProvider) Chat(ctx context.Context, messages []Message, opts GenerateOptions) (*LLMResponse, error) {
	body, err := p.doRequest(ctx, messages, opts, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", p.providerName, err)
	}
	return p.parseResponse(raw)
}

func (p *chatCompletionsProvider) ChatStream(ctx context.Context, messages []Message, opts GenerateOptions, onChunk StreamHandler) (*LLMResponse, error) {
	body, err := p.doRequest(ctx, messages, opts, true)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var content strings.Builder
	model := ""
	finishReason := ""

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var event struct {
			Model   string `json:"model"`
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Model != "" {
			model = event.Model
		}
		for _, choice := range event.Choices {
			if choice.Delta.Content != "" {
				content.WriteString(choice.Delta.Content)
				if onChunk != nil {
					onChunk(choice.Delta.Content)
				}
			}
			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s stream: %w", p.providerName, err)
	}

	if model == "" {
		model = p.resolveModel(opts.Model)
	}
	return &LLMResponse{
		Content:      content.String(),
		Model:        model,
		FinishReason: finishReason,
	}, nil
}

func (p *chatCompletionsProvider) doRequest(ctx context.Context, messages []Message, opts GenerateOptions, stream bool) (io.ReadCloser, error) {
	requestBody := map[string]interface{}{
		"model":    p.resolveModel(opts.Model),
		"messages": messages,
	}
	if opts.MaxTokens > 0 {
		requestBody["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		requestBody["temperature"] = opts.Temperature
	}
	if stream {
		requestBody["stream"] = true
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.providerName, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", p.providerName, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", p.providerName, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%s API request failed:\n  Status: %d\n  Body:   %s", p.providerName, resp.StatusCode, string(raw))
	}
	return resp.Body, nil
}

func (p *chatCompletionsProvider) resolveModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return p.defaultModel
	}
	return model
}

func (p *chatCompletionsProvider) parseResponse(raw []byte) (*LLMResponse, error) {
	var apiResponse struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage Usage `json:"usage"`
	}
	if err := json.Unmarshal(raw, &apiResponse); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", p.providerName, err)
	}
	if len(apiResponse.Choices) == 0 {
		return nil, fmt.Errorf("%s response contained no choices", p.providerName)
	}

	choice := apiResponse.Choices[0]
	return &LLMResponse{
		Content:      choice.Message.Content,
		Model:        apiResponse.Model,
		Usage:        apiResponse.Usage,
		FinishReason: choice.FinishReason,
	}, nil
}
