// Package llmclient holds the concrete chat-model providers behind llm.Client.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"specforge/internal/llm"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// DefaultMaxQuotaWait bounds how long a call waits for a reported quota
// reset before failing instead.
const DefaultMaxQuotaWait = 10 * time.Second

// OpenAIClient calls an OpenAI-compatible Chat Completions API. Groq is the
// default deployment; any base URL speaking the same protocol works.
type OpenAIClient struct {
	cli      *openai.Client
	provider string

	// MaxQuotaWait overrides DefaultMaxQuotaWait when positive.
	MaxQuotaWait time.Duration

	mu       sync.Mutex
	quota    RateLimit
	quotaAt  time.Time
	hasQuota bool
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to GROQ_API_KEY env var.
func NewGroqClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	return NewOpenAIClient("groq", apiKey, GroqBaseURL)
}

// NewOpenAIClient creates a client for baseURL. An empty baseURL keeps the
// library default (api.openai.com).
func NewOpenAIClient(provider, apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is not configured", provider)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{cli: openai.NewClientWithConfig(cfg), provider: provider}, nil
}

func (c *OpenAIClient) Name() string { return c.provider }
func (c *OpenAIClient) Close() error { return nil }

// lastRateLimit returns the quota state from the most recent response and
// when it was observed.
func (c *OpenAIClient) lastRateLimit() (RateLimit, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quota, c.quotaAt, c.hasQuota
}

// waitForQuota sleeps until the last reported quota resets. A reset further
// away than MaxQuotaWait fails the call.
func (c *OpenAIClient) waitForQuota(ctx context.Context) error {
	q, at, ok := c.lastRateLimit()
	if !ok {
		return nil
	}
	wait := q.NextWait() - time.Since(at)
	if wait <= 0 {
		return nil
	}
	limit := c.MaxQuotaWait
	if limit <= 0 {
		limit = DefaultMaxQuotaWait
	}
	if wait > limit {
		return fmt.Errorf("%s: quota exhausted, resets in %s", c.provider, wait.Round(time.Second))
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *OpenAIClient) observeQuota(q RateLimit) {
	c.mu.Lock()
	c.quota, c.quotaAt, c.hasQuota = q, time.Now(), true
	c.mu.Unlock()
}

// Complete sends the prompt as a single user-role message.
func (c *OpenAIClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	if err := c.waitForQuota(ctx); err != nil {
		return nil, err
	}
	resp, err := c.cli.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 400 && apiErr.Code == "context_length_exceeded" {
			return nil, &llm.PermanentError{Err: fmt.Errorf("%s: %w", c.provider, err)}
		}
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}
	if q, ok := parseRateLimitHeaders(resp.Header()); ok {
		c.observeQuota(q)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmptyCompletion
	}
	return &llm.Completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
		},
	}, nil
}
