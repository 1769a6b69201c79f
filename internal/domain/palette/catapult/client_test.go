package catapult

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nodepalette/internal/domain/palette/event"
	"nodepalette/internal/domain/palette/model"
)

// recordingSink 记录分发顺序
type recordingSink struct {
	calls  []string
	accept bool
	nodes  []*model.CandidateNode
}

func (s *recordingSink) BatchStart(llmCount int) {
	s.calls = append(s.calls, fmt.Sprintf("batch_start:%d", llmCount))
}

func (s *recordingSink) NodeGenerated(evt event.StreamEvent) bool {
	s.calls = append(s.calls, "node_generated:"+evt.Node.ID)
	if s.accept {
		s.nodes = append(s.nodes, evt.Node)
	}
	return s.accept
}

func (s *recordingSink) LLMComplete(evt event.StreamEvent) {
	s.calls = append(s.calls, "llm_complete:"+evt.LLM)
}

func (s *recordingSink) LLMError(evt event.StreamEvent) {
	s.calls = append(s.calls, "llm_error:"+evt.LLM)
}

func (s *recordingSink) BatchComplete(evt event.StreamEvent) {
	s.calls = append(s.calls, fmt.Sprintf("batch_complete:%d", evt.NewUniqueNodes))
}

func (s *recordingSink) StreamError(message string) {
	s.calls = append(s.calls, "error:"+message)
}

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
	}))
}

func TestLaunchDispatchesFullStream(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"batch_start","llm_count":2}`,
		`{"type":"node_generated","node":{"id":"n1","text":"Hybrid drive","source_llm":"llm-a","mode":"attributes"}}`,
		`{"type":"node_generated","node":{"id":"n2","text":"Range anxiety","source_llm":"llm-b","mode":"attributes"}}`,
		`{"type":"llm_complete","llm":"llm-a","unique_nodes":1,"duplicates":0,"duration_ms":120}`,
		`{"type":"llm_error","llm":"llm-b","error_type":"rate_limit","error":"quota exceeded","nodes_before_error":1}`,
		`{"type":"batch_complete","new_unique_nodes":2,"total_nodes":2}`,
	})
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	sink := &recordingSink{accept: true}
	accepted, err := client.Launch(context.Background(), PathStart, &GenerateRequest{SessionID: "s1"}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 2 {
		t.Errorf("accepted = %d, want 2", accepted)
	}

	want := []string{
		"batch_start:2",
		"node_generated:n1",
		"node_generated:n2",
		"llm_complete:llm-a",
		"llm_error:llm-b",
		"batch_complete:2",
	}
	if len(sink.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sink.calls, want)
	}
	for i, w := range want {
		if sink.calls[i] != w {
			t.Errorf("calls[%d] = %q, want %q", i, sink.calls[i], w)
		}
	}
	t.Logf("✅ full stream dispatched in line order")
}

func TestLaunchRejectedNodesNotCounted(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"node_generated","node":{"id":"n1","text":"stale","mode":"attributes"}}`,
		`{"type":"batch_complete","new_unique_nodes":1,"total_nodes":1}`,
	})
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	sink := &recordingSink{accept: false}
	accepted, err := client.Launch(context.Background(), PathStart, &GenerateRequest{}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 0 {
		t.Errorf("accepted = %d, want 0 when sink rejects", accepted)
	}
}

func TestLaunchMalformedFramesSkipped(t *testing.T) {
	srv := sseServer(t, []string{
		`{not json`,
		`{"type":"node_generated"}`, // 无 node 字段
		`{"type":"node_generated","node":{"id":"n1","text":"ok","mode":"context"}}`,
	})
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	sink := &recordingSink{accept: true}
	accepted, err := client.Launch(context.Background(), PathStart, &GenerateRequest{}, sink)
	if err != nil {
		t.Fatal(err)
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1", accepted)
	}
}

func TestLaunchAbortSwallowed(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"type\":\"node_generated\",\"node\":{\"id\":\"n1\",\"text\":\"first\",\"mode\":\"context\"}}\n\n")
		flusher.Flush()
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Config{BaseURL: srv.URL}, nil)
	sink := &recordingSink{accept: true}

	done := make(chan struct{})
	var accepted int
	var err error
	go func() {
		accepted, err = client.Launch(ctx, PathStart, &GenerateRequest{}, sink)
		close(done)
	}()

	// 等第一个节点到达后中止（阶段推进语义）
	deadline := time.After(2 * time.Second)
	for len(sink.nodes) == 0 {
		select {
		case <-deadline:
			t.Fatal("first node never arrived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if err != nil {
		t.Fatalf("abort must not surface as error, got %v", err)
	}
	if accepted != 1 {
		t.Errorf("accepted = %d, want nodes received before abort", accepted)
	}
	t.Logf("✅ abort swallowed, %d node(s) kept", accepted)
}

func TestLaunchBackendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	_, err := client.Launch(context.Background(), PathStart, &GenerateRequest{}, &recordingSink{})
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestJWTAuthenticatorSetsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, &JWTAuthenticator{Secret: "test-secret"})
	if err := client.Post(context.Background(), PathCancel, &CancelRequest{SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(gotAuth, "Bearer ") {
		t.Fatalf("Authorization = %q, want Bearer token", gotAuth)
	}
}
