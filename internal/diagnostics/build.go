package diagnostics

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Settings selects sinks by name: log, memory, s3, postgres.
type Settings struct {
	Sinks      []string
	MemorySize int
	PGDSN      string
	S3         S3Config
	Logger     *log.Logger
}

// Built is the assembled sink. Memory is non-nil when the memory sink was
// selected so the debug endpoint can read it.
type Built struct {
	Sink   Sink
	Memory *MemorySink
	close  []func()
}

func (b *Built) Close() {
	for _, c := range b.close {
		c()
	}
}

// Build assembles the configured sinks. An empty selection means log only.
func Build(ctx context.Context, s Settings) (*Built, error) {
	names := s.Sinks
	if len(names) == 0 {
		names = []string{"log"}
	}
	out := &Built{}
	var multi Multi
	for _, raw := range names {
		switch name := strings.ToLower(strings.TrimSpace(raw)); name {
		case "":
			continue
		case "log":
			multi = append(multi, LogSink{Logger: s.Logger})
		case "memory":
			if out.Memory != nil {
				continue
			}
			m, err := NewMemorySink(s.MemorySize)
			if err != nil {
				return nil, err
			}
			out.Memory = m
			multi = append(multi, m)
		case "s3":
			s3, err := NewS3Sink(s.S3)
			if err != nil {
				return nil, fmt.Errorf("diagnostics s3 sink: %w", err)
			}
			multi = append(multi, s3)
		case "postgres":
			pg, err := NewPostgresSink(ctx, s.PGDSN)
			if err != nil {
				return nil, fmt.Errorf("diagnostics postgres sink: %w", err)
			}
			out.close = append(out.close, pg.Close)
			multi = append(multi, pg)
		default:
			return nil, fmt.Errorf("unknown diagnostics sink %q", raw)
		}
	}
	switch len(multi) {
	case 0:
		out.Sink = Discard{}
	case 1:
		out.Sink = multi[0]
	default:
		out.Sink = multi
	}
	return out, nil
}
