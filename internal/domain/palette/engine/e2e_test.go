package engine

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"nodepalette/internal/api"
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/domain/palette/session"
	"nodepalette/internal/platform/i18n"
)

// ---- 对接内置演示后端的整链路测试 ----

func stubBackend(t *testing.T, cfg api.ServerConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(api.NewServer(cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func stubConfig() api.ServerConfig {
	cfg := api.DefaultServerConfig()
	cfg.LLMCount = 2
	cfg.NodesPerLLM = 4
	cfg.NodeDelay = 0
	return cfg
}

func waitHidden(t *testing.T, view *recordingView) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		view.mu.Lock()
		hidden := view.hides > 0
		view.mu.Unlock()
		if hidden {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("loading overlay never hidden")
}

func TestEndToEndCircleFlow(t *testing.T) {
	cfg := stubConfig()
	cfg.JWTSecret = "e2e-secret"
	cfg.JWTIssuer = "nodepalette"
	srv := stubBackend(t, cfg)

	editor := &fakeEditor{dt: model.DiagramCircleMap, spec: &diagram.Spec{
		Topic:   "Mars",
		Context: []string{"Context 1", "Context 2"},
	}}
	view := newRecordingView()
	panel := &fakePanel{}

	client := catapult.New(catapult.Config{BaseURL: srv.URL}, &catapult.JWTAuthenticator{
		Secret: "e2e-secret",
		Issuer: "nodepalette",
	})
	eng := New(Config{
		QuiescenceWindow: 10 * time.Millisecond,
		TelemetryEvery:   100,
	}, client, session.NewStore(), editor, view, panel, i18n.New("en"))
	ctx := context.Background()

	if err := eng.Start(ctx, "e2e-circle", nil); err != nil {
		t.Fatal(err)
	}
	eng.Wait()

	sess := eng.Session()
	nodes := sess.TabNodes("context")
	if len(nodes) != 8 {
		t.Fatalf("got %d nodes, want 8", len(nodes))
	}
	for _, n := range nodes {
		if n.Mode != "context" {
			t.Fatalf("node mode = %q", n.Mode)
		}
	}
	waitHidden(t, view)

	for _, n := range nodes[:2] {
		if err := eng.ToggleSelect(ctx, n.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := eng.Finish(ctx); err != nil {
		t.Fatal(err)
	}
	eng.Wait()

	spec := editor.spec
	if len(spec.Context) != 2 {
		t.Fatalf("spec context = %v", spec.Context)
	}
	for _, entry := range spec.Context {
		if diagram.IsPlaceholder(entry) {
			t.Fatalf("placeholder %q survived assembly", entry)
		}
	}
	if editor.rendered != 1 {
		t.Errorf("rendered %d times, want 1", editor.rendered)
	}
	if panel.closed != 1 {
		t.Errorf("panel closed %d times, want 1", panel.closed)
	}
	t.Logf("✅ circle flow against live backend: %v", spec.Context)
}

func TestEndToEndLLMFailureBadge(t *testing.T) {
	cfg := stubConfig()
	cfg.FailLLM = 2
	cfg.FailType = model.LLMErrorContentFilter
	srv := stubBackend(t, cfg)

	editor := &fakeEditor{dt: model.DiagramBubbleMap, spec: &diagram.Spec{Topic: "Oceans"}}
	view := newRecordingView()
	eng := newEngine(t, srv.URL, editor, view, &fakePanel{})

	if err := eng.Start(context.Background(), "e2e-fail", nil); err != nil {
		t.Fatal(err)
	}
	eng.Wait()

	sess := eng.Session()
	// llm-1 完整产出 4 个，llm-2 失败前产出 1 个
	if n := len(sess.TabNodes("attribute")); n != 5 {
		t.Fatalf("got %d nodes, want 5", n)
	}

	view.mu.Lock()
	badges := append([]string(nil), view.badges...)
	alerts := len(view.alerts)
	view.mu.Unlock()
	if len(badges) != 1 || badges[0] != "llm-2:content_filter" {
		t.Fatalf("badges = %v", badges)
	}
	if alerts != 0 {
		t.Fatalf("partial failure must not alert, got %d alerts", alerts)
	}
	waitHidden(t, view)
	t.Logf("✅ single LLM failure surfaced as badge, batch survived")
}
