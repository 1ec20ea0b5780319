package jsonutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrUnrecoverable is wrapped by every failed RecoveryOutcome.
var ErrUnrecoverable = errors.New("jsonutil: no parseable JSON after repair")

var (
	openingJSONFence = regexp.MustCompile("^```json\\s*")
	openingFence     = regexp.MustCompile("^```\\s*")
	closingFence     = regexp.MustCompile("\\s*```$")
	trailingComma    = regexp.MustCompile(`,(\s*[}\]])`)
)

// RecoveryOutcome is the tagged result of Recover. On success Value holds the
// decoded JSON tree (map[string]any, []any, string, float64, bool or nil).
// On failure Err carries the parse diagnostic. AttemptedText is always the
// repaired text that was handed to the parser.
type RecoveryOutcome struct {
	OK            bool
	Value         any
	Err           error
	AttemptedText string
}

// Recover structurally repairs raw model output and parses it. It never
// panics and never invents field values.
func Recover(raw string) (out RecoveryOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = RecoveryOutcome{
				Err:           fmt.Errorf("%w: repair panicked: %v", ErrUnrecoverable, r),
				AttemptedText: raw,
			}
		}
	}()

	cleaned := Repair(raw)
	var v any
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return RecoveryOutcome{
			Err:           fmt.Errorf("%w: %v", ErrUnrecoverable, err),
			AttemptedText: cleaned,
		}
	}
	return RecoveryOutcome{OK: true, Value: v, AttemptedText: cleaned}
}

// Repair runs the repair steps until the text stops changing. Every step
// only deletes bytes, so each pass either shrinks the text or is a no-op,
// and Repair(Repair(s)) == Repair(s).
func Repair(raw string) string {
	cur := raw
	for {
		next := repairPass(cur)
		if next == cur {
			return next
		}
		cur = next
	}
}

func repairPass(s string) string {
	s = strings.TrimSpace(s)
	s = ExtractPayload(s)
	s = StripControlChars(s)
	s = KeepPrintableASCII(s)
	s = StripTrailingCommas(s)
	return strings.TrimSpace(s)
}

// ExtractPayload slices s to the span between the first '{' and the last '}'.
// Without such a span it strips a markdown fence instead.
func ExtractPayload(s string) string {
	first := strings.IndexByte(s, '{')
	last := strings.LastIndexByte(s, '}')
	if first != -1 && last > first {
		return s[first : last+1]
	}
	return StripFences(s)
}

// StripFences removes a leading ``` or ```json fence and a trailing ``` fence.
func StripFences(s string) string {
	s = openingJSONFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	s = openingFence.ReplaceAllString(s, "")
	s = closingFence.ReplaceAllString(s, "")
	return s
}

// StripControlChars drops U+0000-U+0008, U+000B, U+000C, U+000E-U+001F and
// U+007F-U+009F. Tab, newline and carriage return survive.
func StripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r <= 0x08, r == 0x0B, r == 0x0C:
			return -1
		case r >= 0x0E && r <= 0x1F:
			return -1
		case r >= 0x7F && r <= 0x9F:
			return -1
		}
		return r
	}, s)
}

// KeepPrintableASCII keeps bytes 0x20-0x7E plus \n, \r and \t.
func KeepPrintableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 0x20 && c <= 0x7E) || c == '\n' || c == '\r' || c == '\t' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// StripTrailingCommas removes a comma that directly precedes } or ],
// ignoring whitespace in between.
func StripTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}
