package enhancement

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"specforge/internal/catalog"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	assert.True(t, o.IncludeTechnicalDetails)
	assert.True(t, o.IncludeDependencies)
	assert.False(t, o.IncludeAdditionalInformation)
	assert.Len(t, BuildRequirements(o), 8)
}

func TestMergeOptions(t *testing.T) {
	tests := []struct {
		name    string
		partial PartialOptions
		check   func(t *testing.T, o Options)
	}{
		{
			name:    "nil keeps defaults",
			partial: nil,
			check: func(t *testing.T, o Options) {
				assert.Equal(t, DefaultOptions(), o)
			},
		},
		{
			name:    "explicit false overrides default",
			partial: PartialOptions{"includeTestingStrategies": false},
			check: func(t *testing.T, o Options) {
				assert.False(t, o.IncludeTestingStrategies)
				assert.True(t, o.IncludeErrorHandling)
			},
		},
		{
			name:    "non boolean is false",
			partial: PartialOptions{"includeErrorHandling": "yes", "includeDependencies": 1.0},
			check: func(t *testing.T, o Options) {
				assert.False(t, o.IncludeErrorHandling)
				assert.False(t, o.IncludeDependencies)
			},
		},
		{
			name:    "unknown keys ignored",
			partial: PartialOptions{"includeEverything": true, "includeAdditionalInformation": true},
			check: func(t *testing.T, o Options) {
				assert.True(t, o.IncludeAdditionalInformation)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, MergeOptions(tt.partial))
		})
	}
}

func TestBuildRequirements_CanonicalOrder(t *testing.T) {
	var partial PartialOptions
	require.NoError(t, json.Unmarshal([]byte(`{
		"includeSecurityConsiderations": true,
		"includeTechnicalDetails": true,
		"includeErrorHandling": false,
		"includePerformanceRequirements": false,
		"includeTestingStrategies": false,
		"includeMonitoringApproaches": false,
		"includeDeploymentConsiderations": false,
		"includeDependencies": false,
		"includeAdditionalInformation": false
	}`), &partial))

	got := BuildRequirements(MergeOptions(partial))
	assert.Equal(t, []string{
		"Add specific technical implementation details",
		"Add security measures and considerations",
	}, got)
}

func TestBuildRequirements_NoneSelected(t *testing.T) {
	assert.Empty(t, BuildRequirements(Options{}))
}

func TestDescriptors_MatchOptionsJSON(t *testing.T) {
	raw, err := json.Marshal(DefaultOptions())
	require.NoError(t, err)
	var fields map[string]bool
	require.NoError(t, json.Unmarshal(raw, &fields))

	ds := Descriptors()
	require.Len(t, ds, len(fields))
	for _, d := range ds {
		v, ok := fields[d.ID]
		require.True(t, ok, "descriptor %s has no json field", d.ID)
		assert.Equal(t, d.Default, v, d.ID)
	}
}

func TestOptions_SetAndEnabled(t *testing.T) {
	o, ok := Options{}.Set("includeMonitoringApproaches", true)
	require.True(t, ok)
	assert.True(t, o.Enabled("includeMonitoringApproaches"))
	assert.False(t, o.Enabled("includeDependencies"))

	_, ok = o.Set("bogus", true)
	assert.False(t, ok)
	assert.False(t, o.Enabled("bogus"))
}

func TestFallback(t *testing.T) {
	r := Fallback("Build a login page")
	assert.True(t, strings.HasPrefix(r.EnhancedSpecification, "Build a login page"))
	assert.True(t, strings.HasSuffix(r.EnhancedSpecification, catalog.FallbackNote))
	assert.Equal(t, catalog.Architecture(), r.ThoughtClarifiers)
}

func TestResult_JSONFieldNames(t *testing.T) {
	raw, err := json.Marshal(Result{EnhancedSpecification: "x", ThoughtClarifiers: []string{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"enhanced_specification":"x","thought_clarifiers":["a"]}`, string(raw))
}
