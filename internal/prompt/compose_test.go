package prompt

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_EmbedsSpecificationVerbatim(t *testing.T) {
	spec := "# Login\n\n  keep   spacing \t and \"quotes\" {braces},\n"
	out := Compose(spec, nil, []string{"Add security measures and considerations"})
	assert.Contains(t, out, "SPECIFICATION TO ENHANCE:\n"+spec)
}

func TestCompose_Sections(t *testing.T) {
	out := Compose("spec", map[string]string{"Which DB?": "Postgres"}, []string{"Identify and specify dependencies"})
	for _, want := range []string{
		"SPECIFICATION TO ENHANCE:",
		"ADDITIONAL CONTEXT FROM CLARIFIER RESPONSES:",
		"ENHANCEMENT FOCUS AREAS:\n• Identify and specify dependencies",
		"ENHANCEMENT APPROACH:\n1. Preserve the original structure and intent",
		"RESPONSE FORMAT:",
		`"enhanced_specification"`,
		`"thought_clarifiers"`,
		"array of 3-5",
		"Do not wrap the object in markdown code fences",
		"EXAMPLE FORMAT:",
		"TONE AND STYLE:",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "Return the JSON now:"))
}

func TestCompose_OmitsEmptyClarifierContext(t *testing.T) {
	out := Compose("spec", map[string]string{}, nil)
	assert.NotContains(t, out, "ADDITIONAL CONTEXT FROM CLARIFIER RESPONSES")
	assert.NotContains(t, out, "ENHANCEMENT FOCUS AREAS")
}

func TestCompose_RendersEveryResponse(t *testing.T) {
	responses := map[string]string{
		"What auth provider?": "OAuth via Google",
		"Expected load?":      "200 rps",
		"Mobile support?":     "yes",
	}
	out := Compose("spec", responses, nil)
	for q, a := range responses {
		assert.Contains(t, out, "Q: "+q+"\nA: "+a)
	}
}

func TestCompose_Deterministic(t *testing.T) {
	responses := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := Compose("spec", responses, []string{"x", "y"})
	for i := 0; i < 20; i++ {
		require.Equal(t, first, Compose("spec", responses, []string{"x", "y"}))
	}
}

func TestExample_IsConformingJSON(t *testing.T) {
	var v struct {
		Spec       string   `json:"enhanced_specification"`
		Clarifiers []string `json:"thought_clarifiers"`
	}
	require.NoError(t, json.Unmarshal([]byte(Example), &v))
	assert.NotEmpty(t, v.Spec)
	assert.Len(t, v.Clarifiers, 3)
}
