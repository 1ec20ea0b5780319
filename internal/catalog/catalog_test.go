package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClarifiers_ReturnsCopies(t *testing.T) {
	a := Architecture()
	a[0] = "mutated"
	b := Architecture()
	assert.NotEqual(t, "mutated", b[0])
}

func TestClarifiers_WithinBounds(t *testing.T) {
	for _, s := range []Scenario{ScenarioTechnical, ScenarioArchitecture, ScenarioGeneral, Scenario("unknown")} {
		set := Clarifiers(s)
		require.GreaterOrEqual(t, len(set), MinClarifiers, "scenario %s", s)
		require.LessOrEqual(t, len(set), MaxClarifiers, "scenario %s", s)
		for _, q := range set {
			assert.True(t, strings.HasSuffix(q, "?"), "clarifier %q should be a question", q)
		}
	}
}

func TestClarifiers_UnknownScenarioIsGeneral(t *testing.T) {
	assert.Equal(t, General(), Clarifiers(Scenario("nope")))
}

func TestFallbackNote_CoversSections(t *testing.T) {
	for _, heading := range []string{"### Technical Implementation", "### Error Handling & Resilience", "### Performance & Security"} {
		assert.Contains(t, FallbackNote, heading)
	}
	assert.True(t, strings.HasPrefix(FallbackNote, "\n\n## AI Enhancement Note"))
	assert.True(t, strings.HasPrefix(DefaultNote, "\n\n## Enhancement Note"))
}
