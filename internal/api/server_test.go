package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/event"
	"nodepalette/internal/domain/palette/model"
)

func testConfig() ServerConfig {
	cfg := DefaultServerConfig()
	cfg.LLMCount = 2
	cfg.NodesPerLLM = 3
	cfg.NodeDelay = 0
	return cfg
}

func postJSON(t *testing.T, url, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// collectEvents 消费整条 SSE 流并按到达顺序返回事件
func collectEvents(t *testing.T, url, token string, payload any) []event.StreamEvent {
	t.Helper()
	resp := postJSON(t, url, token, payload)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var events []event.StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var evt event.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt))
		events = append(events, evt)
	}
	require.NoError(t, scanner.Err())
	return events
}

func byType(events []event.StreamEvent, tp event.Type) []event.StreamEvent {
	var out []event.StreamEvent
	for _, evt := range events {
		if evt.Type == tp {
			out = append(out, evt)
		}
	}
	return out
}

func TestStreamEmitsFullBatch(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	events := collectEvents(t, srv.URL+catapult.PathStart, "", &catapult.GenerateRequest{
		SessionID:   "s-1",
		DiagramType: model.DiagramCircleMap,
		DiagramData: &diagram.Spec{Topic: "Mars"},
	})

	starts := byType(events, event.TypeBatchStart)
	require.Len(t, starts, 1)
	require.Equal(t, 2, starts[0].LLMCount)
	require.Equal(t, event.TypeBatchStart, events[0].Type)

	nodes := byType(events, event.TypeNodeGenerated)
	require.Len(t, nodes, 6)
	seen := map[string]bool{}
	for _, evt := range nodes {
		require.Equal(t, "context", evt.Node.Mode)
		require.Contains(t, evt.Node.Text, "Mars context")
		require.False(t, seen[evt.Node.Text], "duplicate text %q", evt.Node.Text)
		seen[evt.Node.Text] = true
	}

	require.Len(t, byType(events, event.TypeLLMComplete), 2)
	completes := byType(events, event.TypeBatchComplete)
	require.Len(t, completes, 1)
	require.Equal(t, 6, completes[0].TotalNodes)
	require.Equal(t, event.TypeBatchComplete, events[len(events)-1].Type)
	t.Logf("✅ full batch: %d events, %d nodes", len(events), len(nodes))
}

func TestFanOutStageUsesParentMode(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	events := collectEvents(t, srv.URL+catapult.PathStart, "", &catapult.GenerateRequest{
		SessionID:   "s-2",
		DiagramType: model.DiagramTreeMap,
		CenterTopic: "Vehicles",
		Stage:       model.StageChildren,
		StageData:   map[string]string{"dimension": "Vehicle type", "category_name": "SUV"},
	})

	nodes := byType(events, event.TypeNodeGenerated)
	require.NotEmpty(t, nodes)
	for _, evt := range nodes {
		require.Equal(t, "SUV", evt.Node.Mode)
		require.Contains(t, evt.Node.Text, "SUV item")
	}
}

func TestDifferencesNodesArePaired(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	events := collectEvents(t, srv.URL+catapult.PathStart, "", &catapult.GenerateRequest{
		SessionID:   "s-3",
		DiagramType: model.DiagramDoubleBubbleMap,
		CenterTopic: "Cats vs Dogs",
		Mode:        model.TabDifferences,
	})

	nodes := byType(events, event.TypeNodeGenerated)
	require.NotEmpty(t, nodes)
	for _, evt := range nodes {
		require.Empty(t, evt.Node.Text)
		require.NotEmpty(t, evt.Node.Left)
		require.NotEmpty(t, evt.Node.Right)
		require.NotEmpty(t, evt.Node.Dimension)
	}
}

func TestSubstepsCarrySequence(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	events := collectEvents(t, srv.URL+catapult.PathNextBatch, "", &catapult.GenerateRequest{
		SessionID:   "s-4",
		DiagramType: model.DiagramFlowMap,
		CenterTopic: "Coffee",
		Stage:       model.StageSubsteps,
		StageData:   map[string]string{"dimension": "Brewing", "step_name": "Brew"},
	})

	nodes := byType(events, event.TypeNodeGenerated)
	require.NotEmpty(t, nodes)
	for _, evt := range nodes {
		require.Equal(t, "Brew", evt.Node.Mode)
		require.Greater(t, evt.Node.Sequence, 0)
	}
}

func TestInjectedLLMFailureKeepsBatchAlive(t *testing.T) {
	cfg := testConfig()
	cfg.FailLLM = 2
	cfg.FailType = model.LLMErrorRateLimit
	srv := httptest.NewServer(NewServer(cfg).Handler())
	defer srv.Close()

	events := collectEvents(t, srv.URL+catapult.PathStart, "", &catapult.GenerateRequest{
		SessionID:   "s-5",
		DiagramType: model.DiagramBubbleMap,
		CenterTopic: "Oceans",
	})

	errs := byType(events, event.TypeLLMError)
	require.Len(t, errs, 1)
	require.Equal(t, "llm-2", errs[0].LLM)
	require.Equal(t, model.LLMErrorRateLimit, errs[0].ErrorType)
	require.Equal(t, 1, errs[0].NodesBeforeError)

	// 另一个 LLM 不受影响，批次正常收尾
	completes := byType(events, event.TypeLLMComplete)
	require.Len(t, completes, 1)
	require.Equal(t, "llm-1", completes[0].LLM)
	require.Equal(t, event.TypeBatchComplete, events[len(events)-1].Type)
	t.Logf("✅ one LLM failed, batch still completed")
}

func TestGenerateRejectsMissingFields(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	resp := postJSON(t, srv.URL+catapult.PathStart, "", &catapult.GenerateRequest{
		DiagramType: model.DiagramCircleMap,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLifecycleEndpointsAck(t *testing.T) {
	srv := httptest.NewServer(NewServer(testConfig()).Handler())
	defer srv.Close()

	for _, path := range []string{catapult.PathSelectNode, catapult.PathCancel, catapult.PathFinish} {
		resp := postJSON(t, srv.URL+path, "", map[string]string{"session_id": "s-6"})
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Equal(t, "ok", body["status"])
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	cfg.JWTIssuer = "nodepalette"
	srv := httptest.NewServer(NewServer(cfg).Handler())
	defer srv.Close()

	payload := &catapult.GenerateRequest{SessionID: "s-7", DiagramType: model.DiagramCircleMap, CenterTopic: "Mars"}

	// 无令牌
	resp := postJSON(t, srv.URL+catapult.PathStart, "", payload)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 错误密钥
	bad := signToken(t, "wrong-secret", "nodepalette")
	resp = postJSON(t, srv.URL+catapult.PathStart, bad, payload)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 错误签发者
	wrongIssuer := signToken(t, "test-secret", "someone-else")
	resp = postJSON(t, srv.URL+catapult.PathStart, wrongIssuer, payload)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// 合法令牌
	good := signToken(t, "test-secret", "nodepalette")
	events := collectEvents(t, srv.URL+catapult.PathStart, good, payload)
	require.NotEmpty(t, events)

	// 健康检查不需要令牌
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	require.Equal(t, http.StatusOK, health.StatusCode)
	t.Logf("✅ bearer auth enforced on palette routes only")
}

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "node_palette",
		"iss": issuer,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}
