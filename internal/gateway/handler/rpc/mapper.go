package rpc

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"specforge/internal/enhancement"
	"specforge/internal/pipeline"
)

// Struct keys reuse the REST wire names.
const (
	keySpecification      = "specification"
	keyClarifierResponses = "clarifierResponses"
	keyOptions            = "enhancementOptions"
	keyEnhanced           = "enhanced_specification"
	keyClarifiers         = "thought_clarifiers"
	keyDescriptors        = "options"
)

// toRequest reads what it can from msg. Values of the wrong kind are
// skipped, like mistyped REST fields.
func toRequest(msg *structpb.Struct) pipeline.Request {
	var req pipeline.Request
	if msg == nil {
		return req
	}
	m := msg.AsMap()
	req.Specification, _ = m[keySpecification].(string)
	if cr, ok := m[keyClarifierResponses].(map[string]any); ok {
		req.ClarifierResponses = make(enhancement.ClarifierResponses, len(cr))
		for q, a := range cr {
			if s, ok := a.(string); ok {
				req.ClarifierResponses[q] = s
			}
		}
	}
	if opts, ok := m[keyOptions].(map[string]any); ok {
		req.Options = enhancement.PartialOptions(opts)
	}
	return req
}

func fromRequest(req pipeline.Request) (*structpb.Struct, error) {
	m := map[string]any{keySpecification: req.Specification}
	if len(req.ClarifierResponses) > 0 {
		cr := make(map[string]any, len(req.ClarifierResponses))
		for q, a := range req.ClarifierResponses {
			cr[q] = a
		}
		m[keyClarifierResponses] = cr
	}
	if len(req.Options) > 0 {
		m[keyOptions] = map[string]any(req.Options)
	}
	return structpb.NewStruct(m)
}

func fromResult(res enhancement.Result) (*structpb.Struct, error) {
	clarifiers := make([]any, len(res.ThoughtClarifiers))
	for i, c := range res.ThoughtClarifiers {
		clarifiers[i] = c
	}
	return structpb.NewStruct(map[string]any{
		keyEnhanced:   res.EnhancedSpecification,
		keyClarifiers: clarifiers,
	})
}

func toResult(msg *structpb.Struct) (enhancement.Result, error) {
	if msg == nil {
		return enhancement.Result{}, fmt.Errorf("empty response")
	}
	fields := msg.GetFields()
	enhanced, ok := fields[keyEnhanced]
	if !ok {
		return enhancement.Result{}, fmt.Errorf("response is missing %s", keyEnhanced)
	}
	res := enhancement.Result{EnhancedSpecification: enhanced.GetStringValue()}
	for _, v := range fields[keyClarifiers].GetListValue().GetValues() {
		res.ThoughtClarifiers = append(res.ThoughtClarifiers, v.GetStringValue())
	}
	return res, nil
}

func fromDescriptors(ds []enhancement.Descriptor) (*structpb.Struct, error) {
	list := make([]any, len(ds))
	for i, d := range ds {
		list[i] = map[string]any{
			"id":          d.ID,
			"label":       d.Label,
			"description": d.Description,
			"default":     d.Default,
		}
	}
	return structpb.NewStruct(map[string]any{keyDescriptors: list})
}

func toDescriptors(msg *structpb.Struct) []enhancement.Descriptor {
	var out []enhancement.Descriptor
	for _, v := range msg.GetFields()[keyDescriptors].GetListValue().GetValues() {
		f := v.GetStructValue().GetFields()
		out = append(out, enhancement.Descriptor{
			ID:          f["id"].GetStringValue(),
			Label:       f["label"].GetStringValue(),
			Description: f["description"].GetStringValue(),
			Default:     f["default"].GetBoolValue(),
		})
	}
	return out
}
