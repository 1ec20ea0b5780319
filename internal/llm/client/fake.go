package llmclient

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"specforge/internal/llm"
)

// FakeClient returns deterministic completions for offline runs and tests.
// Responses are replayed in order; the last one repeats. With no responses
// it answers with a fenced result echoing the first paragraph of the
// specification found in the prompt.
type FakeClient struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls []llm.CompletionRequest
}

func NewFakeClient(responses ...string) *FakeClient {
	return &FakeClient{Responses: responses}
}

func (f *FakeClient) Name() string { return "fake" }
func (f *FakeClient) Close() error { return nil }

// Calls returns the requests seen so far.
func (f *FakeClient) Calls() []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionRequest(nil), f.calls...)
}

func (f *FakeClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	var text string
	switch {
	case len(f.Responses) == 0:
		text = echo(req.Prompt)
	case n < len(f.Responses):
		text = f.Responses[n]
	default:
		text = f.Responses[len(f.Responses)-1]
	}
	return &llm.Completion{
		Text:  text,
		Model: req.Model,
		Usage: llm.Usage{PromptTokens: CountTokens(req.Prompt), CompletionTokens: CountTokens(text)},
	}, nil
}

func echo(prompt string) string {
	_, spec, _ := strings.Cut(prompt, "SPECIFICATION TO ENHANCE:\n")
	spec, _, _ = strings.Cut(spec, "\n\n")
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = "Untitled"
	}
	b, _ := json.Marshal(map[string]any{
		"enhanced_specification": "# Enhanced Specification\n\n" + spec + "\n\n## Implementation Notes\nDescribe components, data flow and failure handling.",
		"thought_clarifiers": []string{
			"Which users or systems will call this feature?",
			"What are the expected request volumes?",
			"Which failures must be surfaced to the user?",
		},
	})
	return "```json\n" + string(b) + "\n```"
}
