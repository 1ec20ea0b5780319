package app

import (
	"context"
	"fmt"
	"log"

	"specforge/internal/diagnostics"
	"specforge/internal/gateway/config"
	llmclient "specforge/internal/llm/client"
	"specforge/internal/pipeline"
	"specforge/internal/telemetry"
)

// Components is the enhancement stack shared by the server and the CLI.
type Components struct {
	Enhancer *pipeline.Enhancer
	Memory   *diagnostics.MemorySink
	Logger   *log.Logger

	close []func()
}

// Build assembles the model client, diagnostics sinks and metrics from cfg.
func Build(ctx context.Context, cfg *config.Config) (*Components, error) {
	logger := log.Default()
	c := &Components{Logger: logger}

	client, err := llmclient.New(ctx, llmclient.Options{
		Provider:      cfg.LLM.Provider,
		GroqAPIKey:    cfg.LLM.GroqAPIKey,
		OpenAIAPIKey:  cfg.LLM.OpenAIAPIKey,
		OpenAIBaseURL: cfg.LLM.OpenAIBaseURL,
		GeminiAPIKey:  cfg.LLM.GeminiAPIKey,
		RPS:           cfg.LLM.RPS,
		Burst:         cfg.LLM.Burst,
		Timeout:       cfg.LLM.Timeout,
		Retries:       cfg.LLM.Retries,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}
	c.close = append(c.close, func() { _ = client.Close() })
	log.Printf("llm client: provider=%s model=%s", client.Name(), cfg.LLM.Model)

	sinks, err := diagnostics.Build(ctx, diagnosticsSettings(cfg, logger))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize diagnostics: %w", err)
	}
	c.close = append(c.close, sinks.Close)
	c.Memory = sinks.Memory
	log.Printf("diagnostics sinks: %v", cfg.Diagnostics.Sinks)

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	c.Enhancer = pipeline.New(client,
		pipeline.WithModelConfig(pipeline.ModelConfig{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}),
		pipeline.WithSink(sinks.Sink),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(logger),
	)
	return c, nil
}

func diagnosticsSettings(cfg *config.Config, logger *log.Logger) diagnostics.Settings {
	return diagnostics.Settings{
		Sinks:      cfg.Diagnostics.Sinks,
		MemorySize: cfg.Diagnostics.MemorySize,
		PGDSN:      cfg.Diagnostics.PGDSN,
		S3: diagnostics.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		},
		Logger: logger,
	}
}

// Close releases clients and sinks in reverse order.
func (c *Components) Close() {
	for i := len(c.close) - 1; i >= 0; i-- {
		c.close[i]()
	}
	c.close = nil
}
