package diagnostics

import (
	"context"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemorySink keeps the most recent records keyed by request id.
type MemorySink struct {
	cache *lru.Cache[string, Record]
}

func NewMemorySink(size int) (*MemorySink, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, Record](size)
	if err != nil {
		return nil, err
	}
	return &MemorySink{cache: cache}, nil
}

func (m *MemorySink) Record(_ context.Context, rec Record) error {
	rec.Issues = slices.Clone(rec.Issues)
	m.cache.Add(rec.RequestID, rec)
	return nil
}

// Get returns the record for a request id.
func (m *MemorySink) Get(requestID string) (Record, bool) {
	return m.cache.Peek(requestID)
}

// Recent returns up to n records, newest first. n <= 0 returns all.
func (m *MemorySink) Recent(n int) []Record {
	values := m.cache.Values()
	slices.Reverse(values)
	if n > 0 && len(values) > n {
		values = values[:n]
	}
	return values
}

func (m *MemorySink) Len() int { return m.cache.Len() }
