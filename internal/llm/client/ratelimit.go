package llmclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimit is the quota state a provider reported on its last response.
// Remaining counts are -1 when the header was absent.
type RateLimit struct {
	RetryAfter time.Duration

	LimitRequests     int
	LimitTokens       int
	RemainingRequests int
	RemainingTokens   int

	ResetRequests time.Duration
	ResetTokens   time.Duration
}

// NextWait converts the quota state into how long the next call should
// wait. Zero means go ahead.
func (r RateLimit) NextWait() time.Duration {
	if r.RetryAfter > 0 {
		return r.RetryAfter
	}
	if r.RemainingTokens == 0 && r.ResetTokens > 0 {
		return r.ResetTokens
	}
	if r.RemainingRequests == 0 && r.ResetRequests > 0 {
		return r.ResetRequests
	}
	return 0
}

// parseRateLimitHeaders reads the x-ratelimit-* family used by Groq and
// OpenAI. On Groq request fields are per day and token fields per minute.
func parseRateLimitHeaders(h http.Header) (RateLimit, bool) {
	out := RateLimit{RemainingRequests: -1, RemainingTokens: -1}
	found := false

	readInt := func(key string) (int, bool) {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			return 0, false
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	readDur := func(key string) (time.Duration, bool) {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			return 0, false
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, false
		}
		return d, true
	}

	if v, ok := readInt("retry-after"); ok {
		out.RetryAfter = time.Duration(v) * time.Second
		found = true
	}
	if v, ok := readInt("x-ratelimit-limit-requests"); ok {
		out.LimitRequests = v
		found = true
	}
	if v, ok := readInt("x-ratelimit-limit-tokens"); ok {
		out.LimitTokens = v
		found = true
	}
	if v, ok := readInt("x-ratelimit-remaining-requests"); ok {
		out.RemainingRequests = v
		found = true
	}
	if v, ok := readInt("x-ratelimit-remaining-tokens"); ok {
		out.RemainingTokens = v
		found = true
	}
	if v, ok := readDur("x-ratelimit-reset-requests"); ok {
		out.ResetRequests = v
		found = true
	}
	if v, ok := readDur("x-ratelimit-reset-tokens"); ok {
		out.ResetTokens = v
		found = true
	}
	return out, found
}
