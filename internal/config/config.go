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

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	AI      AIConfig
	Send    SendConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	storage, err := loadStorageConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	send, err := loadSendConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Storage: storage,
		AI:      ai,
		Send:    send,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// PublicBaseURL 是分享链接的前缀（origin + path，不含 fragment）。
	PublicBaseURL string
	// DeviceIdleTTL 之后未使用的设备控制器会被回收。
	DeviceIdleTTL time.Duration
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	base := getEnvOrDefault("PUBLIC_BASE_URL", "http://localhost:5173/")

	idleTTL, err := parseDurationEnv("DEVICE_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return ServerConfig{}, err
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, PublicBaseURL: base, DeviceIdleTTL: idleTTL}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, PublicBaseURL: base, DeviceIdleTTL: idleTTL}, nil
}

// StorageConfig 描述持久化后端。
type StorageConfig struct {
	Driver string // memory | pebble
	Path   string
}

func loadStorageConfig() (StorageConfig, error) {
	driver := strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", "pebble"))
	switch driver {
	case "memory", "pebble":
	default:
		return StorageConfig{}, fmt.Errorf("invalid STORAGE_DRIVER value: %q", driver)
	}
	return StorageConfig{
		Driver: driver,
		Path:   getEnvOrDefault("STORAGE_PATH", "data/vibecheck"),
	}, nil
}

// AI providers.
const (
	ProviderGemini  = "gemini"
	ProviderArk     = "ark"
	ProviderOffline = "offline"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// ArkEnabled 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) ArkEnabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// GeminiEnabled 表示是否提供了 Gemini API key。
func (c AIConfig) GeminiEnabled() bool {
	return c.GeminiAPIKey != ""
}

// NewChatModel 使用配置创建一个 Ark 模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.ArkEnabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
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
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	geminiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if geminiKey == "" {
		geminiKey = strings.TrimSpace(os.Getenv("API_KEY"))
	}

	cfg := AIConfig{
		GeminiAPIKey:  geminiKey,
		GeminiModel:   getEnvOrDefault("GEMINI_MODEL", "gemini-3-flash-preview"),
		GeminiBaseURL: strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		APIKey:        strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:     strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:     strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:         strings.TrimSpace(os.Getenv("Model")),
		BaseURL:       getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:        getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:   temperature,
		TopP:          topP,
		MaxTokens:     maxTokens,
	}

	provider := strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER")))
	switch provider {
	case "":
		// 未显式指定时按可用凭证选择。
		switch {
		case cfg.GeminiEnabled():
			provider = ProviderGemini
		case cfg.ArkEnabled():
			provider = ProviderArk
		default:
			provider = ProviderOffline
		}
	case ProviderGemini, ProviderArk, ProviderOffline:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value: %q", provider)
	}
	cfg.Provider = provider

	return cfg, nil
}

// SendConfig 控制发送流程的节奏与限流。
type SendConfig struct {
	// Delay 是确认发送前的人为延迟。
	Delay time.Duration
	// FlashDuration 是 "已发送" 提示保留的时长。
	FlashDuration time.Duration
	RatePerMinute int
	Burst         int
}

func loadSendConfig() (SendConfig, error) {
	delay, err := parseDurationEnv("SEND_DELAY", 800*time.Millisecond)
	if err != nil {
		return SendConfig{}, err
	}

	flash, err := parseDurationEnv("SENT_FLASH", 3*time.Second)
	if err != nil {
		return SendConfig{}, err
	}

	ratePerMin := 20
	if v, err := parseOptionalIntEnv("SEND_RATE_PER_MIN"); err != nil {
		return SendConfig{}, err
	} else if v != nil {
		ratePerMin = *v
	}

	burst := 5
	if v, err := parseOptionalIntEnv("SEND_BURST"); err != nil {
		return SendConfig{}, err
	} else if v != nil && *v > 0 {
		burst = *v
	}

	return SendConfig{Delay: delay, FlashDuration: flash, RatePerMinute: ratePerMin, Burst: burst}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string // json | console
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: negative duration", key, raw)
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
