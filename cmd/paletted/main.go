package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"nodepalette/internal/adapter/console"
	"nodepalette/internal/adapter/editor"
	"nodepalette/internal/api"
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/engine"
	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/domain/palette/session"
	"nodepalette/internal/platform/config"
	"nodepalette/internal/platform/i18n"
	applog "nodepalette/internal/platform/log"
)

// paletted 起一个内置的节点生成后端，再用终端宿主跑一轮完整的
// 圆形图会话：生成、选择、装配、渲染。
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	server := api.NewServer(api.ConfigFrom(cfg.Stub, cfg.Auth))
	go func() {
		if err := server.Start(); err != nil {
			applog.Fatalf("❌ Backend error: %v", err)
		}
	}()
	if err := waitHealthy(cfg.Backend.BaseURL, 3*time.Second); err != nil {
		applog.Fatalf("❌ Backend never became healthy: %v", err)
	}
	applog.Info("✅ Node generation backend ready")

	var auth catapult.Authenticator
	if cfg.Auth.JWTSecret != "" {
		auth = &catapult.JWTAuthenticator{
			Secret: cfg.Auth.JWTSecret,
			Issuer: cfg.Auth.JWTIssuer,
		}
	}
	client := catapult.New(catapult.Config{
		BaseURL:                    cfg.Backend.BaseURL,
		ConnectTimeoutSeconds:      cfg.Backend.ConnectTimeoutSeconds,
		TLSHandshakeTimeoutSeconds: cfg.Backend.TLSHandshakeTimeoutSeconds,
	}, auth)

	host := editor.NewDemo(model.DiagramCircleMap, &diagram.Spec{
		Topic:   "Mars exploration",
		Context: []string{"Context 1", "Context 2", "Context 3"},
	}, os.Stdout)
	view := console.NewView(os.Stdout)

	eng := engine.New(engine.Config{
		QuiescenceWindow:   time.Duration(cfg.Palette.QuiescenceWindowMs) * time.Millisecond,
		CloseGap:           time.Duration(cfg.Palette.CloseGapMs) * time.Millisecond,
		ScrollTriggerRatio: cfg.Palette.ScrollTriggerRatio,
		TelemetryEvery:     cfg.Palette.TelemetryEvery,
	}, client, session.NewStore(), host, view, console.Panel{}, i18n.New(cfg.Language))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	applog.Infof("🚀 Opening palette session %s", sessionID)
	if err := eng.Start(ctx, sessionID, &model.EducationalContext{Grade: "8", Subject: "Science"}); err != nil {
		applog.Fatalf("❌ Session start failed: %v", err)
	}
	eng.Wait()

	if ctx.Err() != nil {
		applog.Info("🔄 Interrupted, cancelling session")
		eng.Cancel(context.Background())
	} else {
		sess := eng.Session()
		nodes := sess.TabNodes("context")
		for _, n := range nodes[:min(3, len(nodes))] {
			if err := eng.ToggleSelect(ctx, n.ID); err != nil {
				applog.Warnf("⚠️  Toggle failed: %v", err)
			}
		}
		if err := eng.Finish(ctx); err != nil {
			applog.Errorf("❌ Finish failed: %v", err)
		}
		eng.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		applog.Errorf("❌ Backend shutdown error: %v", err)
	}
	applog.Info("👋 Demo finished")
}

func waitHealthy(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			if err != nil {
				return err
			}
			return fmt.Errorf("health returned %d", resp.StatusCode)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
