package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Backend modes.
const (
	BackendModeRemote = "remote"
	BackendModeModel  = "model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Copilot CopilotConfig
	AI      AIConfig
	Log     LogConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	copilot, err := loadCopilotConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Backend: backend,
		Copilot: copilot,
		AI:      ai,
		Log:     LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "info")},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// BackendConfig describes the conversational backend the chat widget talks to.
type BackendConfig struct {
	Mode      string
	BaseURL   string
	Endpoint  string
	APIKey    string
	RateLimit float64
	RateBurst int
}

// InvokeURL returns the POST target, <base>/<endpoint>/invoke.
func (c BackendConfig) InvokeURL() string {
	base := strings.TrimRight(c.BaseURL, "/")
	endpoint := strings.Trim(c.Endpoint, "/")
	if endpoint == "" {
		endpoint = "chat"
	}
	return base + "/" + endpoint + "/invoke"
}

func loadBackendConfig() (BackendConfig, error) {
	mode := strings.ToLower(getEnvOrDefault("BACKEND_MODE", BackendModeRemote))
	if mode != BackendModeRemote && mode != BackendModeModel {
		return BackendConfig{}, fmt.Errorf("invalid BACKEND_MODE value %q", mode)
	}

	baseURL := getEnvOrDefault("BACKEND_URL", "http://localhost:8000")
	if err := validateURL("BACKEND_URL", baseURL); err != nil {
		return BackendConfig{}, err
	}

	rateLimit, err := parseOptionalFloatEnv("BACKEND_RATE_LIMIT")
	if err != nil {
		return BackendConfig{}, err
	}
	limit := 0.0
	if rateLimit != nil && *rateLimit > 0 {
		limit = *rateLimit
	}

	burst := 1
	if override, err := parseOptionalIntEnv("BACKEND_RATE_BURST"); err != nil {
		return BackendConfig{}, err
	} else if override != nil && *override > 1 {
		burst = *override
	}

	return BackendConfig{
		Mode:      mode,
		BaseURL:   baseURL,
		Endpoint:  getEnvOrDefault("BACKEND_ENDPOINT", "chat"),
		APIKey:    strings.TrimSpace(os.Getenv("BACKEND_API_KEY")),
		RateLimit: limit,
		RateBurst: burst,
	}, nil
}

// CopilotConfig controls the intercepted copilot routes.
type CopilotConfig struct {
	// ForwardURL receives intercepted copilot requests.
	ForwardURL string
	// HostURL is the upstream host application used when forwarding fails.
	HostURL string
}

// Enabled reports whether intercepted requests have somewhere to go.
func (c CopilotConfig) Enabled() bool {
	return c.ForwardURL != ""
}

func loadCopilotConfig() (CopilotConfig, error) {
	cfg := CopilotConfig{
		ForwardURL: strings.TrimSpace(os.Getenv("COPILOT_FORWARD_URL")),
		HostURL:    strings.TrimSpace(os.Getenv("HOST_URL")),
	}
	if cfg.ForwardURL != "" {
		if err := validateURL("COPILOT_FORWARD_URL", cfg.ForwardURL); err != nil {
			return CopilotConfig{}, err
		}
	}
	if cfg.HostURL != "" {
		if err := validateURL("HOST_URL", cfg.HostURL); err != nil {
			return CopilotConfig{}, err
		}
	}
	return cfg, nil
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
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

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY + Model or an AK/SK pair")
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

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s value %q: scheme must be http or https", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s value %q: missing host", key, raw)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
