// Package diagnostics records what happened to each enhancement request for
// operators: which stage failed, the head of the raw model text and the
// normalizer's issues. Specifications themselves are never stored beyond
// the truncated heads captured here.
package diagnostics

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"
)

// Record outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFallback  = "fallback"
)

// Record reasons.
const (
	ReasonNone              = ""
	ReasonInvocationFailed  = "invocation_failed"
	ReasonUnrecoverableJSON = "unrecoverable_json"
	ReasonNormalized        = "normalized"
	ReasonPanic             = "panic"
)

const (
	headLimit = 500
	textLimit = 4000
)

type Record struct {
	RequestID     string    `json:"request_id"`
	At            time.Time `json:"at"`
	Provider      string    `json:"provider,omitempty"`
	Model         string    `json:"model,omitempty"`
	Outcome       string    `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	Error         string    `json:"error,omitempty"`
	RawLength     int       `json:"raw_length"`
	CleanedLength int       `json:"cleaned_length"`
	RawHead       string    `json:"raw_head,omitempty"`
	AttemptedText string    `json:"attempted_text,omitempty"`
	Issues        []string  `json:"issues,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
}

// Sink receives one Record per enhancement request. Record must be safe for
// concurrent use; its error never affects the response.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Head returns at most the first headLimit bytes of s.
func Head(s string) string { return truncate(s, headLimit) }

// Excerpt returns at most the first textLimit bytes of s.
func Excerpt(s string) string { return truncate(s, textLimit) }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// LogSink writes a single line per record.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) Record(_ context.Context, rec Record) error {
	l := s.Logger
	if l == nil {
		l = log.Default()
	}
	if rec.Outcome == OutcomeCompleted && rec.Reason == ReasonNone {
		l.Printf("diagnostics: %s completed provider=%s raw=%d cleaned=%d in %dms",
			rec.RequestID, rec.Provider, rec.RawLength, rec.CleanedLength, rec.DurationMS)
		return nil
	}
	l.Printf("diagnostics: %s %s reason=%s provider=%s raw=%d cleaned=%d issues=[%s] err=%q in %dms",
		rec.RequestID, rec.Outcome, rec.Reason, rec.Provider, rec.RawLength, rec.CleanedLength,
		strings.Join(rec.Issues, "; "), rec.Error, rec.DurationMS)
	return nil
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every record.
type Discard struct{}

func (Discard) Record(context.Context, Record) error { return nil }
