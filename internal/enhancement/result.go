// Package enhancement defines the enhancement request/response model, the
// requirement builder and the model-independent fallback.
package enhancement

import "specforge/internal/catalog"

// ClarifierResponses maps a clarifier question to the author's answer. It is
// read-only prompt context.
type ClarifierResponses map[string]string

// Result is the shape returned on every path. The JSON field names are the
// contract the editor pattern-matches on.
type Result struct {
	EnhancedSpecification string   `json:"enhanced_specification"`
	ThoughtClarifiers     []string `json:"thought_clarifiers"`
}

// Fallback builds the deterministic result used when no model output can be
// used at all. It depends only on local data.
func Fallback(specification string) Result {
	return Result{
		EnhancedSpecification: specification + catalog.FallbackNote,
		ThoughtClarifiers:     catalog.Architecture(),
	}
}
