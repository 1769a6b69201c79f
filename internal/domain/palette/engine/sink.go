package engine

import (
	"sync"
	"time"

	"nodepalette/internal/domain/palette/event"
	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/domain/palette/port"
	"nodepalette/internal/domain/palette/session"
)

// ingestSink 一次 catapult 的入库策略：代数戳比对、mode 校验、页签归属。
// 每次发射创建一个，捕获发射时刻的阶段代数。
type ingestSink struct {
	engine     *Engine
	sess       *session.Session
	generation int64
	targetTab  string // 发射目标页签的代理键
	targetMode string
	strict     bool // double_bubble：mode 必须与目标完全一致
}

func (s *ingestSink) BatchStart(llmCount int) {
	s.engine.logger.Debug("batch started",
		"session_id", s.sess.ID(), "target", s.targetMode, "llm_count", llmCount)
}

func (s *ingestSink) NodeGenerated(evt event.StreamEvent) bool {
	node := evt.Node

	// 代数戳：阶段已推进则丢弃迟到投递
	current := s.sess.Guards().Generation()
	if current != s.generation {
		s.engine.logger.Warn("stale node dropped",
			"node_id", node.ID, "stamped", s.generation, "current", current)
		return false
	}
	s.engine.tracker.touch()

	tab := s.resolveTab(node)
	if tab == nil {
		s.engine.logger.Warn("node mode matches no tab",
			"node_id", node.ID, "mode", node.Mode, "target", s.targetMode)
		return false
	}

	node.Generation = s.generation
	node.BatchNumber = s.sess.CurrentBatch()
	if err := s.sess.AddNode(tab.Key, node); err != nil {
		s.engine.logger.Warn("node rejected", "node_id", node.ID, "error", err)
		return false
	}

	if s.sess.Mounted && tab.Key == s.sess.CurrentTabKey() {
		s.engine.view.AppendCard(tab.Key, node)
	}
	return true
}

// resolveTab 节点归属判定。mode 是权威标记：优先按 mode 匹配页签；
// 分阶段类型放宽为也接受发射目标或当前阶段名；非页签类型一律入唯一页签。
func (s *ingestSink) resolveTab(node *model.CandidateNode) *session.Tab {
	if s.strict {
		if node.Mode != s.targetMode {
			return nil
		}
		tab, _ := s.sess.Tab(s.targetTab)
		return tab
	}
	if tab, ok := s.sess.TabByMode(node.Mode); ok {
		return tab
	}
	if node.Mode == s.targetMode || node.Mode == string(s.sess.CurrentStage()) {
		tab, _ := s.sess.Tab(s.targetTab)
		return tab
	}
	if !s.sess.DiagramType().IsTabbed() {
		tab, _ := s.sess.Tab(s.targetTab)
		return tab
	}
	return nil
}

func (s *ingestSink) LLMComplete(evt event.StreamEvent) {
	s.engine.logger.Debug("llm finished",
		"llm", evt.LLM, "unique_nodes", evt.UniqueNodes,
		"duplicates", evt.Duplicates, "duration_ms", evt.DurationMs)
}

func (s *ingestSink) LLMError(evt event.StreamEvent) {
	// 单个 LLM 失败只打标记，批次继续
	s.engine.logger.Warn("llm failed",
		"llm", evt.LLM, "error_type", evt.ErrorType,
		"error", evt.Error, "nodes_before_error", evt.NodesBeforeError)
	if s.sess.Mounted {
		s.engine.view.ShowLLMBadge(evt.LLM, evt.ErrorType)
	}
}

func (s *ingestSink) BatchComplete(evt event.StreamEvent) {
	s.engine.logger.Debug("batch complete",
		"session_id", s.sess.ID(), "target", s.targetMode,
		"new_unique_nodes", evt.NewUniqueNodes, "total_nodes", evt.TotalNodes)
}

func (s *ingestSink) StreamError(message string) {
	s.engine.logger.Error("stream error", "session_id", s.sess.ID(), "message", message)
	if s.sess.Mounted {
		s.engine.tracker.forceHide()
		s.engine.view.Alert(s.engine.tr.T("generation_failed", message))
	}
}

// loadingTracker 单例加载遮罩的共享计数器。扇出时各 catapult 不各自开遮罩，
// 统一在这里计数；全部收尾后留一个静默窗口再隐藏（窗口内有新节点到达则顺延）。
type loadingTracker struct {
	view   port.GalleryView
	window time.Duration

	mu        sync.Mutex
	active    int
	visible   bool
	hideTimer *time.Timer
}

func newLoadingTracker(view port.GalleryView, window time.Duration) *loadingTracker {
	return &loadingTracker{view: view, window: window}
}

func (l *loadingTracker) begin(n int, label string, guards *session.Guards, show bool) {
	l.mu.Lock()
	l.active += n
	if l.hideTimer != nil {
		l.hideTimer.Stop()
		l.hideTimer = nil
	}
	justShown := show && !l.visible
	if justShown {
		l.visible = true
	}
	l.mu.Unlock()

	guards.BeginLoading()
	if justShown {
		l.view.ShowLoading(label)
	}
}

// touch 静默窗口内有节点到达：顺延隐藏
func (l *loadingTracker) touch() {
	l.mu.Lock()
	if l.hideTimer != nil {
		l.hideTimer.Reset(l.window)
	}
	l.mu.Unlock()
}

func (l *loadingTracker) done(guards *session.Guards) {
	l.mu.Lock()
	l.active--
	if l.active < 0 {
		l.active = 0
	}
	idle := l.active == 0
	l.mu.Unlock()
	if !idle {
		return
	}
	guards.EndLoading()
	l.scheduleHide()
}

func (l *loadingTracker) scheduleHide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.visible {
		return
	}
	if l.hideTimer != nil {
		l.hideTimer.Stop()
	}
	l.hideTimer = time.AfterFunc(l.window, l.hide)
}

func (l *loadingTracker) hide() {
	l.mu.Lock()
	if l.active > 0 {
		l.mu.Unlock()
		return
	}
	wasVisible := l.visible
	l.visible = false
	l.hideTimer = nil
	l.mu.Unlock()
	if wasVisible {
		l.view.HideLoading()
	}
}

func (l *loadingTracker) forceHide() {
	l.mu.Lock()
	if l.hideTimer != nil {
		l.hideTimer.Stop()
		l.hideTimer = nil
	}
	wasVisible := l.visible
	l.visible = false
	l.mu.Unlock()
	if wasVisible {
		l.view.HideLoading()
	}
}
