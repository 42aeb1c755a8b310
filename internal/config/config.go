package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates all service configuration.
type Config struct {
	Env        string
	Server     ServerConfig
	AI         AIConfig
	Embedder   EmbedderConfig
	VectorDB   VectorDBConfig
	Retrieval  RetrievalConfig
	Transcript TranscriptConfig
	Personas   PersonaConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	embedder, err := loadEmbedderConfig()
	if err != nil {
		return nil, err
	}

	retrieval, err := loadRetrievalConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:       getEnvOrDefault("APP_ENV", "production"),
		Server:    server,
		AI:        ai,
		Embedder:  embedder,
		VectorDB:  loadVectorDBConfig(),
		Retrieval: retrieval,
		Transcript: TranscriptConfig{
			Path: strings.TrimSpace(os.Getenv("TRANSCRIPT_DB_PATH")),
		},
		Personas: PersonaConfig{
			File: strings.TrimSpace(os.Getenv("PERSONA_FILE")),
		},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat-completion model.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
	Stream      bool
}

// Enabled reports whether the required model credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("chat model credentials missing: set ARK_API_KEY (or AK/SK pair) and ARK_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		// Matches the original product configuration.
		val := 0.8
		temperature = &val
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}
	if maxTokens == nil {
		val := 2048
		maxTokens = &val
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}, nil
}

// EmbedderConfig describes the sentence-embedding endpoint. The model must be
// the same one used when evidence was originally embedded or similarity
// search is meaningless.
type EmbedderConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	Dimension int
	Timeout   time.Duration
}

func loadEmbedderConfig() (EmbedderConfig, error) {
	dimension := 384 // all-MiniLM-L6-v2
	if override, err := parseOptionalIntEnv("EMBEDDER_DIMENSION"); err != nil {
		return EmbedderConfig{}, err
	} else if override != nil {
		dimension = *override
	}

	timeoutSecs := 30
	if override, err := parseOptionalIntEnv("EMBEDDER_TIMEOUT_SECS"); err != nil {
		return EmbedderConfig{}, err
	} else if override != nil {
		timeoutSecs = *override
	}

	return EmbedderConfig{
		BaseURL:   getEnvOrDefault("EMBEDDER_BASE_URL", "http://localhost:8081/v1"),
		APIKey:    strings.TrimSpace(os.Getenv("EMBEDDER_API_KEY")),
		Model:     getEnvOrDefault("EMBEDDER_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		Dimension: dimension,
		Timeout:   time.Duration(timeoutSecs) * time.Second,
	}, nil
}

// VectorDBConfig describes the Qdrant evidence store. An empty URL selects the
// in-memory store, which is only suitable for local development and tests.
type VectorDBConfig struct {
	URL        string
	APIKey     string
	Collection string
}

func loadVectorDBConfig() VectorDBConfig {
	return VectorDBConfig{
		URL:        strings.TrimSpace(os.Getenv("QDRANT_URL")),
		APIKey:     strings.TrimSpace(os.Getenv("QDRANT_API_KEY")),
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "research_evidence"),
	}
}

// RetrievalConfig holds the similarity-search policy knobs.
type RetrievalConfig struct {
	Threshold     float64
	SegmentLimit  int
	GlobalLimit   int
	FallbackLimit int
	LabelFallback bool
}

func loadRetrievalConfig() (RetrievalConfig, error) {
	threshold := 0.65
	if override, err := parseOptionalFloatEnv("RETRIEVAL_THRESHOLD"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		threshold = *override
	}

	segmentLimit := 5
	if override, err := parseOptionalIntEnv("RETRIEVAL_SEGMENT_LIMIT"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		segmentLimit = *override
	}

	globalLimit := 2
	if override, err := parseOptionalIntEnv("RETRIEVAL_GLOBAL_LIMIT"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		globalLimit = *override
	}

	fallbackLimit := 3
	if override, err := parseOptionalIntEnv("RETRIEVAL_FALLBACK_LIMIT"); err != nil {
		return RetrievalConfig{}, err
	} else if override != nil {
		fallbackLimit = *override
	}

	labelFallback, err := parseBoolEnv("RETRIEVAL_LABEL_FALLBACK", true)
	if err != nil {
		return RetrievalConfig{}, err
	}

	return RetrievalConfig{
		Threshold:     threshold,
		SegmentLimit:  segmentLimit,
		GlobalLimit:   globalLimit,
		FallbackLimit: fallbackLimit,
		LabelFallback: labelFallback,
	}, nil
}

// TranscriptConfig describes optional transcript persistence. An empty path
// disables it; conversations then live only in process memory.
type TranscriptConfig struct {
	Path string
}

// Enabled reports whether transcript persistence is configured.
func (c TranscriptConfig) Enabled() bool { return c.Path != "" }

// PersonaConfig points at an optional persona JSON file.
type PersonaConfig struct {
	File string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
