// Package nlsql translates natural-language questions into warehouse SQL
// through an OpenAI-compatible completion endpoint.
package nlsql

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL = "http://localhost:8000/v1/"
	defaultModel   = "defog/sqlcoder-7b-2"
)

// Config holds translator settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// Translator wraps an OpenAI-compatible API.
type Translator struct {
	api         completionAPI
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

// completionAPI is the slice of the OpenAI client the translator uses.
type completionAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// New creates a translator from config.
func New(cfg Config) (*Translator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("nlsql: API key is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	temp := cfg.Temperature
	if temp <= 0 {
		temp = 0.2
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 256
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	openaiCfg := openai.DefaultConfig(apiKey)
	openaiCfg.BaseURL = baseURL

	return &Translator{
		api:         openai.NewClientWithConfig(openaiCfg),
		model:       model,
		temperature: temp,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}, nil
}

// complete sends a single-shot prompt and returns the raw response text.
func (t *Translator) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if t == nil {
		return "", fmt.Errorf("nlsql: translator is nil")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   t.maxTokens,
		Temperature: t.temperature,
	}

	resp, err := t.api.CreateChatCompletion(ctxWithTimeout, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("nlsql: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
