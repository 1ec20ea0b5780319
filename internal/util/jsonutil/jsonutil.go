package jsonutil

import (
	"bytes"
	"encoding/json"
	"io"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c, etc.
// Specifications routinely contain generics, comparisons and HTML snippets.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	out := bytes.TrimRight(buf.Bytes(), "\n")
	return out, nil
}

// WriteNoEscape writes v to w as a single JSON document without HTML escaping.
func WriteNoEscape(w io.Writer, v any) error {
	b, err := MarshalNoEscape(v)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
