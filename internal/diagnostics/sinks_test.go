package diagnostics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the bucket and object calls S3Sink makes. The first
// HEAD fails with 403 and later ones report a missing bucket.
type fakeS3 struct {
	mu    sync.Mutex
	heads int
	puts  []string
	body  string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodHead:
		f.heads++
		if f.heads == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		b, _ := io.ReadAll(r.Body)
		f.puts = append(f.puts, r.URL.Path)
		f.body = string(b)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Sink(t *testing.T) (*S3Sink, *fakeS3) {
	t.Helper()
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := NewS3Sink(S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "diag",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3Sink_RetriesBucketSetupAfterFailure(t *testing.T) {
	s, fake := newFakeS3Sink(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rec := Record{
		RequestID: "req-9",
		At:        time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC),
		Outcome:   OutcomeFallback,
		Reason:    ReasonUnrecoverableJSON,
		RawHead:   "<not json>",
	}

	err := s.Record(ctx, rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure bucket")

	require.NoError(t, s.Record(ctx, rec))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 2, fake.heads)
	require.Len(t, fake.puts, 2)
	assert.Equal(t, "/diag", strings.TrimSuffix(fake.puts[0], "/"))
	assert.Equal(t, "/diag/enhance/2026/03/04/req-9.json", fake.puts[1])
	assert.Contains(t, fake.body, `"raw_head": "<not json>"`)
}

func TestS3Sink_SkipsCleanCompletions(t *testing.T) {
	s, fake := newFakeS3Sink(t)
	require.NoError(t, s.Record(context.Background(), Record{RequestID: "r", Outcome: OutcomeCompleted}))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Zero(t, fake.heads)
	assert.Empty(t, fake.puts)
}

type execCall struct {
	sql  string
	args []any
}

// fakeExec fails the first failFirst calls.
type fakeExec struct {
	failFirst int
	calls     []execCall
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if len(f.calls) <= f.failFirst {
		return pgconn.CommandTag{}, errors.New("connection refused")
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresSink_RetriesSchemaAfterFailure(t *testing.T) {
	db := &fakeExec{failFirst: 1}
	s := &PostgresSink{db: db}
	rec := Record{RequestID: "req-1", Outcome: OutcomeCompleted, Issues: nil, DurationMS: 12}

	err := s.Record(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ensure schema")

	require.NoError(t, s.Record(context.Background(), rec))
	require.NoError(t, s.Record(context.Background(), Record{RequestID: "req-2", Outcome: OutcomeFallback}))

	require.Len(t, db.calls, 4)
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS enhance_diagnostics")
	assert.Contains(t, db.calls[1].sql, "CREATE TABLE IF NOT EXISTS enhance_diagnostics")
	assert.Contains(t, db.calls[2].sql, "INSERT INTO enhance_diagnostics")
	assert.Contains(t, db.calls[3].sql, "INSERT INTO enhance_diagnostics")

	args := db.calls[2].args
	require.Len(t, args, 13)
	assert.Equal(t, "req-1", args[0])
	assert.Equal(t, []string{}, args[11])
	assert.Equal(t, int64(12), args[12])
}

// TestPostgresSink_Live runs against a real database when
// DIAGNOSTICS_TEST_PG_DSN is set.
func TestPostgresSink_Live(t *testing.T) {
	dsn := os.Getenv("DIAGNOSTICS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DIAGNOSTICS_TEST_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := NewPostgresSink(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Record(ctx, Record{
		RequestID: "live-" + time.Now().UTC().Format("20060102150405.000000000"),
		At:        time.Now(),
		Outcome:   OutcomeFallback,
		Reason:    ReasonInvocationFailed,
	}))
}
