package llmclient

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"specforge/internal/llm"
)

// Options selects and tunes a provider. Zero RPS, Timeout and Retries
// disable the matching middleware.
type Options struct {
	Provider      string
	GroqAPIKey    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string

	RPS     float64
	Burst   int
	Timeout time.Duration
	Retries int

	Logger *log.Logger
}

// New builds the provider named by o.Provider and wraps it with the
// logging, hook, resilience and rate-limit middlewares.
func New(ctx context.Context, o Options) (llm.Client, error) {
	var (
		inner llm.Client
		err   error
	)
	switch strings.ToLower(strings.TrimSpace(o.Provider)) {
	case "", "groq":
		inner, err = NewGroqClient(o.GroqAPIKey)
	case "openai":
		inner, err = NewOpenAIClient("openai", o.OpenAIAPIKey, o.OpenAIBaseURL)
	case "gemini":
		inner, err = NewGeminiClient(ctx, o.GeminiAPIKey)
	case "fake":
		inner = NewFakeClient()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", o.Provider)
	}
	if err != nil {
		return nil, err
	}
	return llm.Wrap(inner,
		llm.WithLogging(o.Logger),
		llm.WithHooks(),
		llm.Resilient(o.Timeout, o.Retries),
		llm.RateLimit(o.RPS, o.Burst),
	), nil
}
