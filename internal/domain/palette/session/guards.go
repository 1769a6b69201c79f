package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guards 会话的并发防护状态：阶段代数、批次加载标志与中止句柄。
// 三者是面板全部的重入防护面，只允许 Workflow Engine 修改。
type Guards struct {
	generation atomic.Int64
	loading    atomic.Bool

	mu    sync.Mutex
	abort context.CancelFunc
}

// Generation 当前阶段代数
func (g *Guards) Generation() int64 {
	return g.generation.Load()
}

// AdvanceGeneration 阶段推进时 +1；在途请求的投递随之失效
func (g *Guards) AdvanceGeneration() int64 {
	return g.generation.Add(1)
}

// Loading 是否有批次在加载中
func (g *Guards) Loading() bool {
	return g.loading.Load()
}

// BeginLoading 尝试进入加载态；已在加载中返回 false
func (g *Guards) BeginLoading() bool {
	return g.loading.CompareAndSwap(false, true)
}

// EndLoading 退出加载态
func (g *Guards) EndLoading() {
	g.loading.Store(false)
}

// SetAbort 记录在途 Catapult 的中止句柄
func (g *Guards) SetAbort(cancel context.CancelFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abort = cancel
}

// Abort 中止在途 Catapult（若有）；句柄只触发一次
func (g *Guards) Abort() {
	g.mu.Lock()
	cancel := g.abort
	g.abort = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
