package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"specforge/internal/catalog"
)

type Config struct {
	Port         string
	Env          string
	TracesStdout bool
	LLM          LLMConfig
	Diagnostics  DiagnosticsConfig
	Artifact     ArtifactConfig
}

type LLMConfig struct {
	Provider      string
	Model         string
	Temperature   float32
	MaxTokens     int
	GroqAPIKey    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string
	RPS           float64
	Burst         int
	Timeout       time.Duration
	Retries       int
}

type DiagnosticsConfig struct {
	Sinks      []string
	MemorySize int
	PGDSN      string
}

type ArtifactConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// fileConfig is the optional YAML overlay named by SPECFORGE_CONFIG.
// Environment variables win over file values.
type fileConfig struct {
	Port         string `yaml:"port"`
	Env          string `yaml:"env"`
	TracesStdout string `yaml:"traces_stdout"`
	LLM          struct {
		Provider      string `yaml:"provider"`
		Model         string `yaml:"model"`
		Temperature   string `yaml:"temperature"`
		MaxTokens     string `yaml:"max_tokens"`
		OpenAIBaseURL string `yaml:"openai_base_url"`
		RPS           string `yaml:"rps"`
		Burst         string `yaml:"burst"`
		Timeout       string `yaml:"timeout"`
		Retries       string `yaml:"retries"`
	} `yaml:"llm"`
	Diagnostics struct {
		Sink       string `yaml:"sink"`
		MemorySize string `yaml:"memory_size"`
		PGDSN      string `yaml:"pg_dsn"`
	} `yaml:"diagnostics"`
	Artifact struct {
		Endpoint string `yaml:"endpoint"`
		Region   string `yaml:"region"`
		Bucket   string `yaml:"bucket"`
		UseSSL   string `yaml:"use_ssl"`
	} `yaml:"artifact"`
}

// Load reads .env, the optional YAML file and the environment.
// API keys and S3 credentials are only read from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var file fileConfig
	if path := strings.TrimSpace(os.Getenv("SPECFORGE_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	p := &parser{}
	port := env("PORT", file.Port, ":8080")
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		port = ":" + port
	}

	provider := strings.ToLower(env("LLM_PROVIDER", file.LLM.Provider, "groq"))
	cfg := &Config{
		Port:         port,
		Env:          env("APP_ENV", file.Env, "local"),
		TracesStdout: p.boolean("OTEL_TRACES_STDOUT", env("OTEL_TRACES_STDOUT", file.TracesStdout, "false")),
		LLM: LLMConfig{
			Provider:      provider,
			Model:         env("LLM_MODEL", file.LLM.Model, catalog.DefaultModelFor(provider)),
			Temperature:   float32(p.float("LLM_TEMPERATURE", env("LLM_TEMPERATURE", file.LLM.Temperature, strconv.FormatFloat(float64(catalog.DefaultTemperature), 'f', -1, 32)))),
			MaxTokens:     p.integer("LLM_MAX_TOKENS", env("LLM_MAX_TOKENS", file.LLM.MaxTokens, strconv.Itoa(catalog.DefaultMaxTokens))),
			GroqAPIKey:    strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			OpenAIAPIKey:  strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIBaseURL: env("OPENAI_BASE_URL", file.LLM.OpenAIBaseURL, ""),
			GeminiAPIKey:  firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
			RPS:           p.float("LLM_RPS", env("LLM_RPS", file.LLM.RPS, "0")),
			Burst:         p.integer("LLM_BURST", env("LLM_BURST", file.LLM.Burst, "0")),
			Timeout:       p.duration("LLM_TIMEOUT", env("LLM_TIMEOUT", file.LLM.Timeout, "0")),
			Retries:       p.integer("LLM_RETRIES", env("LLM_RETRIES", file.LLM.Retries, "0")),
		},
		Diagnostics: DiagnosticsConfig{
			Sinks:      splitList(env("DIAGNOSTICS_SINK", file.Diagnostics.Sink, "log")),
			MemorySize: p.integer("DIAGNOSTICS_MEMORY_SIZE", env("DIAGNOSTICS_MEMORY_SIZE", file.Diagnostics.MemorySize, "256")),
			PGDSN:      env("DIAGNOSTICS_PG_DSN", file.Diagnostics.PGDSN, ""),
		},
	}
	cfg.Artifact = loadArtifactConfig(cfg.Env, file)
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

func loadArtifactConfig(appEnv string, file fileConfig) ArtifactConfig {
	local := strings.EqualFold(strings.TrimSpace(appEnv), "local")
	endpoint := env("ARTIFACT_S3_ENDPOINT", file.Artifact.Endpoint, "")
	if local {
		endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT")), endpoint, "minio:9000")
	}
	useSSL := true
	if local {
		useSSL = false
	} else if raw := env("ARTIFACT_S3_USE_SSL", file.Artifact.UseSSL, ""); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			useSSL = v
		}
	}
	return ArtifactConfig{
		Endpoint:  endpoint,
		Region:    env("ARTIFACT_S3_REGION", file.Artifact.Region, "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    env("ARTIFACT_S3_BUCKET", file.Artifact.Bucket, "specforge-diagnostics"),
		UseSSL:    useSSL,
	}
}

// parser keeps the first conversion error so Load reports one bad key.
type parser struct{ err error }

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func (p *parser) integer(key, raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
	}
	return n
}

func (p *parser) float(key, raw string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		p.fail(key, raw, err)
	}
	return f
}

func (p *parser) boolean(key, raw string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.fail(key, raw, err)
	}
	return b
}

// duration accepts Go durations ("30s") or a bare number of seconds.
func (p *parser) duration(key, raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
	}
	return d
}

func env(key, fileValue, def string) string {
	return strings.TrimSpace(firstNonEmpty(os.Getenv(key), fileValue, def))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
