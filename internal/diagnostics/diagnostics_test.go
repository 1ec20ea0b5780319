package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink_RecentNewestFirst(t *testing.T) {
	m, err := NewMemorySink(3)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Record(ctx, Record{RequestID: fmt.Sprintf("r%d", i), Outcome: OutcomeCompleted}))
	}
	assert.Equal(t, 3, m.Len())

	recent := m.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "r5", recent[0].RequestID)
	assert.Equal(t, "r4", recent[1].RequestID)
	assert.Len(t, m.Recent(0), 3)

	_, ok := m.Get("r1")
	assert.False(t, ok)
	rec, ok := m.Get("r3")
	assert.True(t, ok)
	assert.Equal(t, OutcomeCompleted, rec.Outcome)
}

func TestMemorySink_CopiesIssues(t *testing.T) {
	m, err := NewMemorySink(0)
	require.NoError(t, err)
	issues := []string{"a"}
	require.NoError(t, m.Record(context.Background(), Record{RequestID: "x", Issues: issues}))
	issues[0] = "mutated"
	rec, _ := m.Get("x")
	assert.Equal(t, []string{"a"}, rec.Issues)
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, Record) error { return f.err }

func TestMulti_FansOutAndJoinsErrors(t *testing.T) {
	m, _ := NewMemorySink(4)
	boom := errors.New("boom")
	err := Multi{failingSink{boom}, nil, m}.Record(context.Background(), Record{RequestID: "x"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.Len())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := LogSink{Logger: log.New(&buf, "", 0)}
	_ = s.Record(context.Background(), Record{RequestID: "a", Outcome: OutcomeCompleted, Provider: "groq"})
	_ = s.Record(context.Background(), Record{RequestID: "b", Outcome: OutcomeFallback, Reason: ReasonUnrecoverableJSON, Issues: []string{"x", "y"}})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "diagnostics: a completed provider=groq")
	assert.Contains(t, lines[1], "reason=unrecoverable_json")
	assert.Contains(t, lines[1], "issues=[x; y]")
}

func TestHeadAndExcerpt(t *testing.T) {
	long := strings.Repeat("a", 5000)
	assert.Len(t, Head(long), 500)
	assert.Len(t, Excerpt(long), 4000)
	assert.Equal(t, "short", Head("short"))
}

func TestObjectKey(t *testing.T) {
	rec := Record{RequestID: "abc", At: time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)}
	assert.Equal(t, "enhance/2026/03/04/abc.json", ObjectKey("/enhance/", rec))
}

func TestNewS3Sink_Validation(t *testing.T) {
	_, err := NewS3Sink(S3Config{})
	assert.Error(t, err)
	_, err = NewS3Sink(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	ctx := context.Background()

	b, err := Build(ctx, Settings{})
	require.NoError(t, err)
	assert.IsType(t, LogSink{}, b.Sink)
	assert.Nil(t, b.Memory)

	b, err = Build(ctx, Settings{Sinks: []string{"log", " memory ", "memory"}, MemorySize: 8})
	require.NoError(t, err)
	require.NotNil(t, b.Memory)
	assert.IsType(t, Multi{}, b.Sink)
	require.NoError(t, b.Sink.Record(ctx, Record{RequestID: "r"}))
	assert.Equal(t, 1, b.Memory.Len())

	_, err = Build(ctx, Settings{Sinks: []string{"kafka"}})
	assert.Error(t, err)

	_, err = Build(ctx, Settings{Sinks: []string{"postgres"}})
	assert.Error(t, err)
}
