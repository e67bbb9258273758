package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration loaded from environment variables.
// It is immutable after Load() returns.
type Config struct {
	Port        int
	Environment string

	VectorDBURL      string
	VectorDBMaxConns int

	GCPProject          string
	VertexAILocation    string
	VertexAIModel       string
	EmbeddingLocation   string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingCacheSize  int

	OpenAIAPIKey      string
	PerplexityAPIKey  string
	PerplexityModel   string
	PerplexityTimeout int

	CatalogueDir    string
	CacheDir        string
	CacheEnabled    bool
	CacheTTLDays    int
	CacheMaxSizeGB  float64
	CacheCleanupHrs int

	MaxQueryLength   int
	DefaultResults   int
	CurrentYearRange int

	VectorQueryTimeout   int
	LLMStreamTimeout     int
	ProviderStreamTimeout int

	FrontendURL string
}

// Load reads configuration from environment variables.
// Required variables (VECTOR_DB_URL, GOOGLE_CLOUD_PROJECT, OPENAI_API_KEY) cause
// an error if missing. Optional variables use sensible defaults.
func Load() (*Config, error) {
	dbURL := os.Getenv("VECTOR_DB_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("config.Load: VECTOR_DB_URL is required")
	}

	gcpProject := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if gcpProject == "" {
		return nil, fmt.Errorf("config.Load: GOOGLE_CLOUD_PROJECT is required")
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		return nil, fmt.Errorf("config.Load: OPENAI_API_KEY is required")
	}

	cfg := &Config{
		Port:        envInt("PORT", 8080),
		Environment: envStr("ENVIRONMENT", "development"),

		VectorDBURL:      dbURL,
		VectorDBMaxConns: envInt("VECTOR_DB_MAX_CONNS", 25),

		GCPProject:          gcpProject,
		VertexAILocation:    envStr("VERTEX_AI_LOCATION", "global"),
		VertexAIModel:       envStr("VERTEX_AI_MODEL", "gemini-2.0-flash"),
		EmbeddingLocation:   envStr("VERTEX_AI_EMBEDDING_LOCATION", "us-central1"),
		EmbeddingModel:      envStr("VERTEX_AI_EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDimensions: envInt("EMBEDDING_DIMENSIONS", 768),
		EmbeddingCacheSize:  envInt("EMBEDDING_CACHE_SIZE", 200),

		OpenAIAPIKey:      openAIKey,
		PerplexityAPIKey:  envStr("PERPLEXITY_API_KEY", ""),
		PerplexityModel:   envStr("PERPLEXITY_MODEL", "sonar"),
		PerplexityTimeout: envInt("PERPLEXITY_TIMEOUT_SECONDS", 60),

		CatalogueDir:    envStr("CATALOGUE_DIR", "./data/catalogue"),
		CacheDir:        envStr("CACHE_DIR", "./data/cache"),
		CacheEnabled:    envStr("CACHE_ENABLED", "true") == "true",
		CacheTTLDays:    envInt("CACHE_MAX_AGE_DAYS", 7),
		CacheMaxSizeGB:  envFloat("CACHE_MAX_SIZE_GB", 1.0),
		CacheCleanupHrs: envInt("CACHE_CLEANUP_INTERVAL_HOURS", 24),

		MaxQueryLength:   envInt("MAX_QUERY_LENGTH", 1000),
		DefaultResults:   envInt("DEFAULT_RESULTS", 5),
		CurrentYearRange: envInt("CURRENT_YEAR_RANGE", 1),

		VectorQueryTimeout:    envInt("VECTOR_QUERY_TIMEOUT_SECONDS", 5),
		LLMStreamTimeout:      envInt("LLM_STREAM_TIMEOUT_SECONDS", 60),
		ProviderStreamTimeout: envInt("PROVIDER_STREAM_TIMEOUT_SECONDS", 60),

		FrontendURL: envStr("FRONTEND_URL", "http://localhost:3000"),
	}

	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
