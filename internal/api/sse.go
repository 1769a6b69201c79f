package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"nodepalette/internal/domain/palette/event"
)

// sseWriter 把事件编成 `data: <json>` 帧。多个模拟 LLM 并发写同一条响应，
// 帧边界靠互斥锁保证。
type sseWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

// send 写出一帧并立即冲刷；客户端断开导致的写失败静默忽略
func (sw *sseWriter) send(evt event.StreamEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	fmt.Fprintf(sw.w, "data: %s\n\n", data)
	sw.flusher.Flush()
}
