package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Chart  ChartConfig
	Store  StoreConfig
	Turn   TurnConfig
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

	chart, err := loadChartConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	turn, err := loadTurnConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Chart: chart, Store: store, Turn: turn}, nil
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
		// Accept ":8080" or "127.0.0.1:8080" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat-model credentials and sampling settings.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark chat model from this configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	temperature := float32(c.Temperature)
	topP := float32(c.TopP)
	maxTokens := c.MaxTokens

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseFloatEnv("ARK_TEMPERATURE", 0.3)
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseFloatEnv("ARK_TOP_P", 1.0)
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseIntEnv("ARK_MAX_TOKENS", 500)
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
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// ChartConfig describes the external chart-computation API.
type ChartConfig struct {
	BaseURL string
	APIKey  string
	Timeout int
}

// Enabled reports whether a chart API endpoint is configured.
func (c ChartConfig) Enabled() bool {
	return c.BaseURL != ""
}

func loadChartConfig() (ChartConfig, error) {
	timeout, err := parseIntEnv("CHART_API_TIMEOUT", 15)
	if err != nil {
		return ChartConfig{}, err
	}

	return ChartConfig{
		BaseURL: strings.TrimSpace(os.Getenv("CHART_API_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("CHART_API_KEY")),
		Timeout: timeout,
	}, nil
}

// StoreConfig selects the session store backend. An empty RedisAddr
// keeps session state in memory.
type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    int
}

func loadStoreConfig() (StoreConfig, error) {
	db, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return StoreConfig{}, err
	}

	ttl, err := parseIntEnv("SESSION_TTL_HOURS", 24)
	if err != nil {
		return StoreConfig{}, err
	}

	return StoreConfig{
		RedisAddr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       db,
		SessionTTL:    ttl,
	}, nil
}

// TurnConfig holds orchestrator settings.
type TurnConfig struct {
	SampleSize int
}

func loadTurnConfig() (TurnConfig, error) {
	sample, err := parseIntEnv("TURN_SPEAKERS", 6)
	if err != nil {
		return TurnConfig{}, err
	}
	if sample < 1 {
		return TurnConfig{}, fmt.Errorf("TURN_SPEAKERS must be at least 1, got %d", sample)
	}

	return TurnConfig{SampleSize: sample}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
