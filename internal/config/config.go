package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个程序的配置项。
type Config struct {
	Server    ServerConfig
	Content   ContentConfig
	Relay     RelayConfig
	Link      LinkConfig
	Machine   MachineConfig
	Translate TranslateConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	content, err := loadContentConfig()
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig()
	if err != nil {
		return nil, err
	}

	link, err := loadLinkConfig()
	if err != nil {
		return nil, err
	}

	machine, err := loadMachineConfig()
	if err != nil {
		return nil, err
	}

	translate, err := loadTranslateConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Content:   content,
		Relay:     relay,
		Link:      link,
		Machine:   machine,
		Translate: translate,
	}, nil
}

// ServerConfig 描述面板 HTTP 服务配置。
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

// ContentConfig 笑话内容服务。
type ContentConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadContentConfig() (ContentConfig, error) {
	timeout, err := parseSecondsEnv("JOKE_API_TIMEOUT", 10)
	if err != nil {
		return ContentConfig{}, err
	}

	base := getEnvOrDefault("JOKE_API_BASE_URL", "https://v2.jokeapi.dev")
	if _, err := parseHTTPURL(base); err != nil {
		return ContentConfig{}, fmt.Errorf("invalid JOKE_API_BASE_URL: %w", err)
	}

	return ContentConfig{BaseURL: strings.TrimRight(base, "/"), Timeout: timeout}, nil
}

// RelayConfig 描述 webhook relay 配置，WebhookURL 为空表示禁用。
type RelayConfig struct {
	WebhookURL       string
	MaxAttempts      int
	RetryDelay       time.Duration
	HandshakeTimeout time.Duration
}

// Enabled 是否配置了 webhook。
func (c RelayConfig) Enabled() bool {
	return c.WebhookURL != ""
}

func loadRelayConfig() (RelayConfig, error) {
	webhook := strings.TrimSpace(os.Getenv("RELAY_WEBHOOK_URL"))
	if webhook != "" {
		if _, err := parseHTTPURL(webhook); err != nil {
			return RelayConfig{}, fmt.Errorf("invalid RELAY_WEBHOOK_URL: %w", err)
		}
	}

	attempts := 3
	if override, err := parseOptionalIntEnv("RELAY_MAX_ATTEMPTS"); err != nil {
		return RelayConfig{}, err
	} else if override != nil {
		if *override < 1 {
			attempts = 1
		} else {
			attempts = *override
		}
	}

	delay, err := parseMillisEnv("RELAY_RETRY_DELAY_MS", 1000)
	if err != nil {
		return RelayConfig{}, err
	}

	handshake, err := parseSecondsEnv("RELAY_HANDSHAKE_TIMEOUT", 30)
	if err != nil {
		return RelayConfig{}, err
	}

	return RelayConfig{
		WebhookURL:       webhook,
		MaxAttempts:      attempts,
		RetryDelay:       delay,
		HandshakeTimeout: handshake,
	}, nil
}

// LinkConfig 网络连通性探测配置。
type LinkConfig struct {
	ProbeAddr string
	Interval  time.Duration
}

func loadLinkConfig() (LinkConfig, error) {
	interval, err := parseSecondsEnv("LINK_PROBE_INTERVAL", 5)
	if err != nil {
		return LinkConfig{}, err
	}
	return LinkConfig{
		ProbeAddr: getEnvOrDefault("LINK_PROBE_ADDR", "1.1.1.1:53"),
		Interval:  interval,
	}, nil
}

// MachineConfig 控制器的画面停留时间。
type MachineConfig struct {
	AckPause  time.Duration
	BootPause time.Duration
}

func loadMachineConfig() (MachineConfig, error) {
	ack, err := parseMillisEnv("RATING_ACK_PAUSE_MS", 2000)
	if err != nil {
		return MachineConfig{}, err
	}
	return MachineConfig{AckPause: ack, BootPause: time.Second}, nil
}

// TranslateConfig 描述大模型翻译兜底的配置。
type TranslateConfig struct {
	FallbackEnabled bool
	TargetLanguage  string
	APIKey          string
	AccessKey       string
	SecretKey       string
	Model           string
	BaseURL         string
	Region          string
	Temperature     *float64
	MaxTokens       *int
}

// Enabled 表示是否开启兜底并提供了必需的密钥。
func (c TranslateConfig) Enabled() bool {
	return c.FallbackEnabled && c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c TranslateConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
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

func loadTranslateConfig() (TranslateConfig, error) {
	enabled, err := parseBoolEnv("TRANSLATE_FALLBACK_ENABLED", false)
	if err != nil {
		return TranslateConfig{}, err
	}

	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return TranslateConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return TranslateConfig{}, err
	}

	return TranslateConfig{
		FallbackEnabled: enabled,
		TargetLanguage:  getEnvOrDefault("TRANSLATE_TARGET_LANGUAGE", "Korean"),
		APIKey:          strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:       strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:       strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:           strings.TrimSpace(os.Getenv("Model")),
		BaseURL:         getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:          getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:     temperature,
		MaxTokens:       maxTokens,
	}, nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
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

// parseSecondsEnv 读取以秒为单位的非负整数。
func parseSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	return parseDurationEnv(key, defaultSeconds, time.Second)
}

// parseMillisEnv 读取以毫秒为单位的非负整数。
func parseMillisEnv(key string, defaultMillis int) (time.Duration, error) {
	return parseDurationEnv(key, defaultMillis, time.Millisecond)
}

func parseDurationEnv(key string, defaultValue int, unit time.Duration) (time.Duration, error) {
	override, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	value := defaultValue
	if override != nil {
		if *override < 0 {
			return 0, fmt.Errorf("invalid %s value %d: must not be negative", key, *override)
		}
		value = *override
	}
	return time.Duration(value) * unit, nil
}
