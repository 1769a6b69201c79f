package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/platform/config"
	applog "nodepalette/internal/platform/log"
)

// ServerConfig 演示后端配置
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// JWTSecret 为空时跳过鉴权（测试便利）
	JWTSecret string
	JWTIssuer string

	LLMCount    int
	NodesPerLLM int
	NodeDelay   time.Duration

	// FailLLM 模拟第 N 个 LLM 失败（0 表示不注入）
	FailLLM  int
	FailType model.LLMErrorType
}

// DefaultServerConfig 返回默认配置。WriteTimeout 要覆盖整条 SSE 流的寿命。
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		LLMCount:     4,
		NodesPerLLM:  15,
		NodeDelay:    5 * time.Millisecond,
		FailType:     model.LLMErrorGeneric,
	}
}

// ConfigFrom 从全局配置装配后端配置
func ConfigFrom(stub config.StubConfig, auth config.AuthConfig) ServerConfig {
	cfg := DefaultServerConfig()
	if stub.Host != "" {
		cfg.Host = stub.Host
	}
	if stub.Port > 0 {
		cfg.Port = stub.Port
	}
	if stub.LLMCount > 0 {
		cfg.LLMCount = stub.LLMCount
	}
	if stub.NodesPerLLM > 0 {
		cfg.NodesPerLLM = stub.NodesPerLLM
	}
	if stub.NodeDelayMs >= 0 {
		cfg.NodeDelay = time.Duration(stub.NodeDelayMs) * time.Millisecond
	}
	cfg.JWTSecret = auth.JWTSecret
	cfg.JWTIssuer = auth.JWTIssuer
	return cfg
}

// Server 节点生成演示后端：五个面板端点加健康检查
type Server struct {
	config     ServerConfig
	logger     *slog.Logger
	gen        *generator
	httpServer *http.Server
}

// NewServer 创建服务实例
func NewServer(cfg ServerConfig) *Server {
	return &Server{
		config: cfg,
		logger: applog.With("component", "stub_backend"),
		gen: &generator{
			llmCount:    cfg.LLMCount,
			nodesPerLLM: cfg.NodesPerLLM,
			delay:       cfg.NodeDelay,
			failLLM:     cfg.FailLLM,
			failType:    cfg.FailType,
		},
	}
}

// Handler 返回完整路由（测试经 httptest 直接挂载）
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if s.config.JWTSecret != "" {
			r.Use(s.authMiddleware)
		}
		r.Post(catapult.PathStart, s.handleGenerate)
		r.Post(catapult.PathNextBatch, s.handleGenerate)
		r.Post(catapult.PathSelectNode, s.handleSelectNode)
		r.Post(catapult.PathCancel, s.handleCancel)
		r.Post(catapult.PathFinish, s.handleFinish)
	})
	return r
}

// Start 启动 HTTP 服务（阻塞直至 Stop 或失败）
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	applog.Infof("🚀 node generation backend listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("backend server failed: %w", err)
	}
	return nil
}

// Stop 优雅停机
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	applog.Info("stopping node generation backend")
	return s.httpServer.Shutdown(ctx)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
