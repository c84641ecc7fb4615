// Package config loads service configuration from flags and the
// environment, with .env support for local development.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	LLM        LLMConfig
	Summary    SummaryConfig
	Transcript TranscriptConfig
	Artifact   ArtifactConfig

	// HNBaseURL overrides the thread source endpoint, mainly for tests
	// and mirrors.
	HNBaseURL string
}

type LLMConfig struct {
	Provider string
	Model    string
	RPS      float64
	Burst    int
}

type SummaryConfig struct {
	// CacheTTL is the validity window for cached summaries.
	CacheTTL time.Duration
	// CacheSize bounds the in-process cache entry count.
	CacheSize int
	// RedisURL enables the shared cache origin when set.
	RedisURL string
	// MinNodes and MinDepth gate the LLM call: selections below either
	// threshold are refused before spending tokens.
	MinNodes int
	MinDepth int
}

type TranscriptConfig struct {
	// PostgresDSN enables the relational backend; empty falls back to
	// the JSON file at Path.
	PostgresDSN string
	Path        string
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port: *port,
		Env:  env,
		LLM: LLMConfig{
			Provider: firstNonEmpty(os.Getenv("LLM_PROVIDER"), "gemini"),
			Model:    firstNonEmpty(os.Getenv("LLM_MODEL"), "gemini-2.0-flash"),
			RPS:      envFloat("LLM_RPS", 0),
			Burst:    envInt("LLM_BURST", 0),
		},
		Summary: SummaryConfig{
			CacheTTL:  envDuration("SUMMARY_CACHE_TTL", 24*time.Hour),
			CacheSize: envInt("SUMMARY_CACHE_SIZE", 512),
			RedisURL:  strings.TrimSpace(os.Getenv("SUMMARY_CACHE_REDIS_URL")),
			MinNodes:  envInt("SUMMARY_MIN_NODES", 3),
			MinDepth:  envInt("SUMMARY_MIN_DEPTH", 1),
		},
		Transcript: TranscriptConfig{
			PostgresDSN: strings.TrimSpace(os.Getenv("TRANSCRIPT_PG_DSN")),
			Path:        firstNonEmpty(os.Getenv("TRANSCRIPT_PATH"), ".threadlens/transcripts.json"),
		},
		Artifact:  loadArtifactConfig(),
		HNBaseURL: strings.TrimSpace(os.Getenv("HN_BASE_URL")),
	}, nil
}

func loadArtifactConfig() ArtifactConfig {
	endpoint := strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(os.Getenv("ARTIFACT_S3_REGION"), "us-east-1"),
		AccessKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_ACCESS_KEY"), os.Getenv("MINIO_ROOT_USER")),
		SecretKey: firstNonEmpty(os.Getenv("ARTIFACT_S3_SECRET_KEY"), os.Getenv("MINIO_ROOT_PASSWORD")),
		Bucket:    firstNonEmpty(os.Getenv("ARTIFACT_S3_BUCKET"), "threadlens-artifacts"),
		UseSSL:    envBool("ARTIFACT_S3_USE_SSL", false),
	}
}

func (a ArtifactConfig) CanUseS3() bool {
	return a.Enabled && a.Endpoint != "" && a.AccessKey != "" && a.SecretKey != "" && a.Bucket != ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
