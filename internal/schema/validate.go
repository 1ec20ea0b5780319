// Package schema converts an untyped recovered JSON value into an
// enhancement.Result, substituting catalog defaults field by field.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"specforge/internal/catalog"
	"specforge/internal/enhancement"
	"specforge/internal/util/jsonutil"
)

// Issue messages recorded in Outcome.Issues.
const (
	IssueNotObject            = "Response is not a valid object"
	IssueInvalidSpecification = "Missing or invalid enhanced_specification"
	IssueInvalidClarifiers    = "Missing or invalid thought_clarifiers"
	IssueNoClarifiers         = "No thought clarifiers provided"
)

// Outcome is the normalizer's verdict. Data is always schema-valid; Issues is
// an audit trail of every substitution and never drives control flow.
type Outcome struct {
	IsValid bool
	Data    enhancement.Result
	Issues  []string
}

// document mirrors enhancement.Result with the constraints the result must
// satisfy. The JSON Schema is reflected from it.
type document struct {
	EnhancedSpecification string   `json:"enhanced_specification" jsonschema:"minLength=1"`
	ThoughtClarifiers     []string `json:"thought_clarifiers" jsonschema:"minItems=1,maxItems=6"`
}

var compiled = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	raw, err := ResultSchema()
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
})

// ResultSchema returns the JSON Schema of a conforming model response.
func ResultSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous:                 true,
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(&document{})
	s.Version = ""
	return json.Marshal(s)
}

// Conforms reports whether v already satisfies the result schema, with the
// schema violations when it does not.
func Conforms(v any) (bool, []string) {
	s, err := compiled()
	if err != nil {
		return false, []string{fmt.Sprintf("schema unavailable: %v", err)}
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(v))
	if err != nil {
		return false, []string{err.Error()}
	}
	if res.Valid() {
		return true, nil
	}
	out := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		out = append(out, e.String())
	}
	return false, out
}

// FromRecovery normalizes a recovery outcome. A failed recovery is treated
// like a non-object value.
func FromRecovery(rec jsonutil.RecoveryOutcome, specification string) Outcome {
	if !rec.OK {
		return Validate(nil, specification)
	}
	return Validate(rec.Value, specification)
}

// Validate is total: for any v it returns a Result whose specification is
// non-empty and whose clarifier list has between 1 and MaxClarifiers entries.
func Validate(v any, specification string) Outcome {
	obj, ok := v.(map[string]any)
	if !ok {
		return Outcome{
			Data:   defaultResult(specification),
			Issues: []string{IssueNotObject},
		}
	}

	if valid, _ := Conforms(obj); valid {
		if data, ok := decodeConforming(obj); ok {
			return Outcome{IsValid: true, Data: data}
		}
	}

	var (
		issues []string
		data   enhancement.Result
	)

	if s, ok := obj["enhanced_specification"].(string); ok && s != "" {
		data.EnhancedSpecification = s
	} else {
		issues = append(issues, IssueInvalidSpecification)
		data.EnhancedSpecification = specification + catalog.DefaultNote
	}

	if list, ok := obj["thought_clarifiers"].([]any); ok {
		clarifiers, dropped := stringItems(list)
		if dropped > 0 {
			issues = append(issues, fmt.Sprintf("Dropped %d non-string or blank thought clarifiers", dropped))
		}
		data.ThoughtClarifiers = clarifiers
	} else {
		issues = append(issues, IssueInvalidClarifiers)
		data.ThoughtClarifiers = catalog.General()
	}

	if len(data.ThoughtClarifiers) == 0 {
		issues = append(issues, IssueNoClarifiers)
		data.ThoughtClarifiers = catalog.General()
	}

	if len(data.ThoughtClarifiers) > catalog.MaxClarifiers {
		data.ThoughtClarifiers = data.ThoughtClarifiers[:catalog.MaxClarifiers]
		issues = append(issues, fmt.Sprintf("Too many clarifiers, limited to %d", catalog.MaxClarifiers))
	}

	return Outcome{IsValid: len(issues) == 0, Data: data, Issues: issues}
}

func decodeConforming(obj map[string]any) (enhancement.Result, bool) {
	s, _ := obj["enhanced_specification"].(string)
	list, _ := obj["thought_clarifiers"].([]any)
	clarifiers, dropped := stringItems(list)
	if s == "" || dropped > 0 || len(clarifiers) == 0 || len(clarifiers) > catalog.MaxClarifiers {
		return enhancement.Result{}, false
	}
	return enhancement.Result{EnhancedSpecification: s, ThoughtClarifiers: clarifiers}, true
}

func stringItems(list []any) ([]string, int) {
	out := make([]string, 0, len(list))
	dropped := 0
	for _, item := range list {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			dropped++
			continue
		}
		out = append(out, s)
	}
	return out, dropped
}

func defaultResult(specification string) enhancement.Result {
	return enhancement.Result{
		EnhancedSpecification: specification + catalog.DefaultNote,
		ThoughtClarifiers:     catalog.General(),
	}
}
