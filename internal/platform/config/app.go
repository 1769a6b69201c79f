package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig 全局配置。启动时统一加载，再按模块提取使用。
type AppConfig struct {
	LogLevel  string        `json:"log_level"`
	LogFormat string        `json:"log_format"`
	Language  string        `json:"language"` // en | zh
	Backend   BackendConfig `json:"backend"`
	Auth      AuthConfig    `json:"auth"`
	Palette   PaletteConfig `json:"palette"`
	Stub      StubConfig    `json:"stub"`
}

// BackendConfig 节点生成后端的访问配置
type BackendConfig struct {
	BaseURL                    string `json:"base_url"`
	ConnectTimeoutSeconds      int    `json:"connect_timeout_seconds"`
	TLSHandshakeTimeoutSeconds int    `json:"tls_handshake_timeout_seconds"`
}

// AuthConfig 默认鉴权传输的 JWT 配置
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	JWTIssuer string `json:"jwt_issuer"`
}

// PaletteConfig 面板核心的调优参数
type PaletteConfig struct {
	QuiescenceWindowMs int     `json:"quiescence_window_ms"` // 加载遮罩静默窗口
	CloseGapMs         int     `json:"close_gap_ms"`         // 面板关闭到重绘之间的间隔
	ScrollTriggerRatio float64 `json:"scroll_trigger_ratio"` // 无限滚动触发比例
	TelemetryEvery     int     `json:"telemetry_every"`      // 每多少次选择上报一次
}

// StubConfig 内置演示后端（cmd/paletted 与测试使用）
type StubConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	LLMCount    int    `json:"llm_count"`
	NodesPerLLM int    `json:"nodes_per_llm"`
	NodeDelayMs int    `json:"node_delay_ms"`
}

// Default 返回默认配置。
func Default() *AppConfig {
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Language:  "en",
		Backend: BackendConfig{
			BaseURL:                    "http://127.0.0.1:8080",
			ConnectTimeoutSeconds:      30,
			TLSHandshakeTimeoutSeconds: 30,
		},
		Palette: PaletteConfig{
			QuiescenceWindowMs: 500,
			CloseGapMs:         350,
			ScrollTriggerRatio: 2.0 / 3.0,
			TelemetryEvery:     5,
		},
		Stub: StubConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			LLMCount:    4,
			NodesPerLLM: 15,
			NodeDelayMs: 5,
		},
	}
}

// Load 加载全局配置：默认值 -> 配置文件 -> 环境变量。
// 配置文件路径通过 APP_CONFIG_FILE 指定（JSON）。
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		// .env 非必需，忽略错误
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)
	applyString("PALETTE_LANGUAGE", &c.Language)

	applyString("BACKEND_BASE_URL", &c.Backend.BaseURL)
	applyInt("BACKEND_CONNECT_TIMEOUT", &c.Backend.ConnectTimeoutSeconds)
	applyInt("BACKEND_TLS_HANDSHAKE_TIMEOUT", &c.Backend.TLSHandshakeTimeoutSeconds)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyInt("PALETTE_QUIESCENCE_WINDOW_MS", &c.Palette.QuiescenceWindowMs)
	applyInt("PALETTE_CLOSE_GAP_MS", &c.Palette.CloseGapMs)
	applyFloat64("PALETTE_SCROLL_TRIGGER_RATIO", &c.Palette.ScrollTriggerRatio)
	applyInt("PALETTE_TELEMETRY_EVERY", &c.Palette.TelemetryEvery)

	applyString("STUB_HOST", &c.Stub.Host)
	applyInt("STUB_PORT", &c.Stub.Port)
	applyInt("STUB_LLM_COUNT", &c.Stub.LLMCount)
	applyInt("STUB_NODES_PER_LLM", &c.Stub.NodesPerLLM)
	applyInt("STUB_NODE_DELAY_MS", &c.Stub.NodeDelayMs)
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.Language != "en" && c.Language != "zh" {
		return fmt.Errorf("PALETTE_LANGUAGE must be en or zh, got %q", c.Language)
	}
	if c.Palette.ScrollTriggerRatio <= 0 || c.Palette.ScrollTriggerRatio > 1 {
		return fmt.Errorf("PALETTE_SCROLL_TRIGGER_RATIO must be in (0, 1]")
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}
