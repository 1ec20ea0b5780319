package llmclient

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specforge/internal/llm"
)

func TestParseRateLimitHeaders_GroqFormat(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after", "2")
	h.Set("x-ratelimit-limit-requests", "14400")
	h.Set("x-ratelimit-limit-tokens", "18000")
	h.Set("x-ratelimit-remaining-requests", "14370")
	h.Set("x-ratelimit-remaining-tokens", "17997")
	h.Set("x-ratelimit-reset-requests", "2m59.56s")
	h.Set("x-ratelimit-reset-tokens", "7.66s")

	got, ok := parseRateLimitHeaders(h)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, got.RetryAfter)
	assert.Equal(t, 14400, got.LimitRequests)
	assert.Equal(t, 18000, got.LimitTokens)
	assert.Equal(t, 14370, got.RemainingRequests)
	assert.Equal(t, 17997, got.RemainingTokens)
	assert.Equal(t, 2*time.Minute+59*time.Second+560*time.Millisecond, got.ResetRequests)
	assert.Equal(t, 7*time.Second+660*time.Millisecond, got.ResetTokens)
}

func TestParseRateLimitHeaders_Absent(t *testing.T) {
	got, ok := parseRateLimitHeaders(http.Header{"X-Other": []string{"1"}})
	assert.False(t, ok)
	assert.Equal(t, -1, got.RemainingTokens)
	assert.Zero(t, got.NextWait())
}

func TestRateLimit_NextWait(t *testing.T) {
	tests := []struct {
		name string
		in   RateLimit
		want time.Duration
	}{
		{"retry after", RateLimit{RetryAfter: 3 * time.Second, RemainingRequests: -1, RemainingTokens: -1}, 3 * time.Second},
		{"tokens exhausted", RateLimit{RemainingRequests: 5, RemainingTokens: 0, ResetTokens: 5 * time.Second}, 5 * time.Second},
		{"requests exhausted", RateLimit{RemainingRequests: 0, RemainingTokens: -1, ResetRequests: 11 * time.Second}, 11 * time.Second},
		{"quota left", RateLimit{RemainingRequests: 3, RemainingTokens: 10, ResetTokens: time.Second}, 0},
		{"unreported", RateLimit{RemainingRequests: -1, RemainingTokens: -1, ResetTokens: time.Second}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.NextWait())
		})
	}
}

func TestOpenAIClient_ExhaustedQuotaFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := stubOpenAI(t, func(w http.ResponseWriter, _ map[string]any) {
		calls.Add(1)
		w.Header().Set("x-ratelimit-remaining-requests", "0")
		w.Header().Set("x-ratelimit-reset-requests", "2h")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	})
	c, err := NewOpenAIClient("groq", "test-key", srv.URL+"/v1")
	require.NoError(t, err)

	req := llm.CompletionRequest{Model: "m", Prompt: "p"}
	_, err = c.Complete(context.Background(), req)
	require.NoError(t, err)
	q, _, ok := c.lastRateLimit()
	require.True(t, ok)
	assert.Equal(t, 0, q.RemainingRequests)

	_, err = c.Complete(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exhausted")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_ShortQuotaResetWaits(t *testing.T) {
	srv := stubOpenAI(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("x-ratelimit-remaining-tokens", "0")
		w.Header().Set("x-ratelimit-reset-tokens", "50ms")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","model":"m",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`))
	})
	c, err := NewOpenAIClient("groq", "test-key", srv.URL+"/v1")
	require.NoError(t, err)

	req := llm.CompletionRequest{Model: "m", Prompt: "p"}
	_, err = c.Complete(context.Background(), req)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), req)
	assert.NoError(t, err)
}
