// Package engine 实现面板的工作流引擎：阶段推进、扇出、流式入库、
// 无限滚动与最终装配的编排。三个重入防护（阶段代数、加载标志、中止句柄）
// 只允许本包修改。
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/assemble"
	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/domain/palette/port"
	"nodepalette/internal/domain/palette/session"
	applog "nodepalette/internal/platform/log"
)

var (
	// ErrSessionMissing start/preload/next_batch 缺少会话 id 或图示类型；不触网
	ErrSessionMissing = errors.New("session id or diagram type missing")
	// ErrEmptySelection 完成/推进时没有可用的选择
	ErrEmptySelection = errors.New("no nodes selected")
	// ErrInvalidSelection 选择不满足阶段约束（如 flow 维度要求恰好一个）
	ErrInvalidSelection = errors.New("invalid selection for stage")
	// ErrNoRenderMethod 宿主编辑器没有任何重绘方法
	ErrNoRenderMethod = errors.New("editor exposes no render method")
)

// Config 引擎调优参数
type Config struct {
	QuiescenceWindow   time.Duration // 加载遮罩静默窗口
	CloseGap           time.Duration // 面板关闭到 spec 变更之间的间隔
	ScrollTriggerRatio float64       // 无限滚动触发比例
	TelemetryEvery     int           // 每多少次选择上报一次
}

func (c Config) withDefaults() Config {
	if c.QuiescenceWindow <= 0 {
		c.QuiescenceWindow = 500 * time.Millisecond
	}
	if c.CloseGap < 0 {
		c.CloseGap = 0
	}
	if c.ScrollTriggerRatio <= 0 || c.ScrollTriggerRatio > 1 {
		c.ScrollTriggerRatio = 2.0 / 3.0
	}
	if c.TelemetryEvery <= 0 {
		c.TelemetryEvery = 5
	}
	return c
}

// Engine 工作流引擎
type Engine struct {
	cfg     Config
	client  *catapult.Client
	store   *session.Store
	editor  port.Editor
	view    port.GalleryView
	panel   port.PanelManager
	tr      port.Translator
	tracker *loadingTracker
	logger  *slog.Logger

	mu   sync.Mutex
	sess *session.Session

	closing atomic.Bool // 区分自己发起的关闭与面板管理器触发的关闭
	toggles atomic.Int64
	batchWG sync.WaitGroup
}

// New 创建引擎。panel 可为 nil（无面板管理器的宿主）。
func New(cfg Config, client *catapult.Client, store *session.Store,
	editor port.Editor, view port.GalleryView, panel port.PanelManager, tr port.Translator) *Engine {
	if view == nil {
		view = port.NopView{}
	}
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:     cfg,
		client:  client,
		store:   store,
		editor:  editor,
		view:    view,
		panel:   panel,
		tr:      tr,
		tracker: newLoadingTracker(view, cfg.QuiescenceWindow),
		logger:  applog.With("component", "palette_engine"),
	}
}

// Session 当前会话（测试与宿主查询用）
func (e *Engine) Session() *session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Wait 等在途 catapult 与后台上报收尾（测试用）
func (e *Engine) Wait() { e.batchWG.Wait() }

// Preload 预热：建立（或复用）会话并发射首批请求，但不挂载 UI。
// 缺会话 id 或图示类型时只警告，不触网。
func (e *Engine) Preload(ctx context.Context, sessionID string, edu *model.EducationalContext) error {
	dt := e.editor.DiagramType()
	if sessionID == "" || dt == "" {
		e.logger.Warn("preload without session id or diagram type",
			"session_id", sessionID, "diagram_type", dt)
		return ErrSessionMissing
	}

	sess, created := e.getOrCreateSession(sessionID, dt, edu)
	if !created {
		return nil // 存活会话已经有内容，保持原样
	}
	e.initializeStage(ctx, sess)
	return nil
}

// Start 打开面板：复用 preload 留下的会话或新建，挂载 UI 并回放已有内容。
func (e *Engine) Start(ctx context.Context, sessionID string, edu *model.EducationalContext) error {
	dt := e.editor.DiagramType()
	if sessionID == "" || dt == "" {
		e.logger.Warn("start without session id or diagram type",
			"session_id", sessionID, "diagram_type", dt)
		return ErrSessionMissing
	}

	sess, created := e.getOrCreateSession(sessionID, dt, edu)
	e.closing.Store(false)
	sess.Mounted = true
	if created {
		e.initializeStage(ctx, sess)
	}
	e.mount(sess)
	return nil
}

func (e *Engine) getOrCreateSession(sessionID string, dt model.DiagramType, edu *model.EducationalContext) (*session.Session, bool) {
	sess, created := e.store.GetOrCreate(sessionID, func() *session.Session {
		spec := e.editor.Spec()
		topic := spec.Topic
		if topic == "" {
			topic = spec.Whole
		}
		return session.New(sessionID, dt, topic, spec, edu)
	})
	e.mu.Lock()
	e.sess = sess
	e.mu.Unlock()
	return sess, created
}

// initializeStage 新会话的首发：推断续接阶段、建页签、发射 catapult。
func (e *Engine) initializeStage(ctx context.Context, sess *session.Session) {
	dt := sess.DiagramType()
	switch {
	case dt.IsStaged():
		stage, parents := resumeStage(dt, sess.Snapshot, e.classifier())
		sess.SetCurrentStage(stage)
		if sess.Snapshot.Dimension != "" {
			sess.StageData.Dimension = sess.Snapshot.Dimension
		}
		if len(parents) > 0 {
			sess.StageData.SetParents(dt, parents)
		}
		e.logger.Info("session resumes", "session_id", sess.ID(), "stage", stage, "parents", len(parents))
		e.fireStage(ctx, sess, stage)

	case dt.IsTabbed():
		// 双页签类型：开场即并行发射两个页签
		meta := diagram.MetaFor(dt)
		sess.InitStaticTabs(meta.TabOrder)
		specs := make([]launchSpec, 0, len(meta.TabOrder))
		for _, name := range meta.TabOrder {
			tab, _ := sess.Tab(name)
			req := e.startRequest(sess)
			req.Mode = name
			specs = append(specs, launchSpec{tabKey: tab.Key, targetMode: name, req: req})
		}
		e.launch(ctx, sess, catapult.PathStart, specs, dt == model.DiagramDoubleBubbleMap)

	default:
		// 单数组类型：唯一页签，一次一个 catapult
		meta := diagram.MetaFor(dt)
		sess.InitStaticTabs([]string{meta.NodeType})
		tab, _ := sess.Tab(meta.NodeType)
		e.launch(ctx, sess, catapult.PathStart,
			[]launchSpec{{tabKey: tab.Key, targetMode: meta.NodeType, req: e.startRequest(sess)}}, false)
	}
}

// fireStage 为指定阶段建页签并发射：扇出阶段一父级一 catapult，
// 其余阶段单页签单 catapult。
func (e *Engine) fireStage(ctx context.Context, sess *session.Session, stage model.Stage) {
	dt := sess.DiagramType()
	if stage == fanOutStage(dt) && len(stageSequences[dt]) > 1 {
		parents := sess.StageData.Parents(dt)
		tabs := sess.InitDynamicTabs(parents)
		specs := make([]launchSpec, 0, len(tabs))
		for _, tab := range tabs {
			req := e.startRequest(sess)
			req.Stage = stage
			req.StageData = stagePayload(dt, &sess.StageData, stage, tab.Mode)
			specs = append(specs, launchSpec{tabKey: tab.Key, targetMode: tab.Mode, req: req})
		}
		e.launch(ctx, sess, catapult.PathStart, specs, false)
		return
	}

	sess.EnsureTab(string(stage), string(stage), string(stage))
	sess.SwitchTab(string(stage), 0, true)
	tab, _ := sess.Tab(string(stage))
	req := e.startRequest(sess)
	req.Stage = stage
	req.StageData = stagePayload(dt, &sess.StageData, stage, "")
	e.launch(ctx, sess, catapult.PathStart,
		[]launchSpec{{tabKey: tab.Key, targetMode: string(stage), req: req}}, false)
}

func (e *Engine) startRequest(sess *session.Session) *catapult.GenerateRequest {
	return &catapult.GenerateRequest{
		SessionID:          sess.ID(),
		DiagramType:        sess.DiagramType(),
		DiagramData:        sess.Snapshot,
		EducationalContext: sess.Educational,
	}
}

type launchSpec struct {
	tabKey     string
	targetMode string
	req        *catapult.GenerateRequest
}

// launch 发射一批 catapult。一个阶段共用一个中止句柄；
// 扇出时遮罩由共享计数器统一管理，子请求不各自开遮罩。
func (e *Engine) launch(ctx context.Context, sess *session.Session, path string, specs []launchSpec, strict bool) {
	if len(specs) == 0 {
		return
	}
	generation := sess.Guards().Generation()
	batchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sess.Guards().SetAbort(cancel)

	e.tracker.begin(len(specs), e.loadingLabel(sess), sess.Guards(), sess.Mounted)

	for _, spec := range specs {
		sink := &ingestSink{
			engine:     e,
			sess:       sess,
			generation: generation,
			targetTab:  spec.tabKey,
			targetMode: spec.targetMode,
			strict:     strict,
		}
		e.batchWG.Add(1)
		go func(spec launchSpec) {
			defer e.batchWG.Done()
			defer e.tracker.done(sess.Guards())
			accepted, err := e.client.Launch(batchCtx, path, spec.req, sink)
			if err != nil {
				e.logger.Error("catapult failed", "path", path, "target", spec.targetMode, "error", err)
				if sess.Mounted {
					e.view.Alert(e.tr.T("generation_failed", err.Error()))
				}
				return
			}
			e.logger.Debug("catapult settled", "target", spec.targetMode, "accepted", accepted)
		}(spec)
	}
}

func (e *Engine) loadingLabel(sess *session.Session) string {
	dt := sess.DiagramType()
	key := string(sess.CurrentStage())
	if key == "" {
		if tab := sess.CurrentTab(); tab != nil {
			key = tab.Mode
		}
	}
	am := diagram.ArrayFor(dt, key)
	return e.tr.T("loading_nodes", am.NodeNamePlural)
}

// mount 把会话投影到视图：页签、已有卡片、选中态、滚动位置与按钮文案。
// 重进存活会话时这里负责完整回放。
func (e *Engine) mount(sess *session.Session) {
	tabs := sess.Tabs()
	views := make([]port.TabView, len(tabs))
	for i, t := range tabs {
		views[i] = port.TabView{Key: t.Key, Label: t.Label, Locked: t.Locked}
	}
	e.view.SetTabs(views)
	e.view.SetActiveTab(sess.CurrentTabKey())
	for _, t := range tabs {
		for _, n := range sess.TabNodes(t.Key) {
			e.view.AppendCard(t.Key, n)
			if n.Selected {
				e.view.SetSelected(t.Key, n.ID, true)
			}
		}
	}
	if cur := sess.CurrentTab(); cur != nil {
		e.view.RestoreScroll(cur.Key, cur.ScrollOffset)
	}
	e.view.SetProgressLabel(e.progressLabel(sess))
}

func (e *Engine) progressLabel(sess *session.Session) string {
	dt := sess.DiagramType()
	if !dt.IsStaged() {
		return e.tr.T("finish_selection")
	}
	seq := stageSequences[dt]
	idx := stageIndex(dt, sess.CurrentStage())
	if idx < 0 || idx == len(seq)-1 {
		return e.tr.T("finish_selection")
	}
	return e.tr.T("next_stage_" + string(seq[idx+1]))
}

// Advance 推进阶段。末位阶段（或非分阶段类型）上等价于 Finish。
func (e *Engine) Advance(ctx context.Context) error {
	sess := e.Session()
	if sess == nil {
		return ErrSessionMissing
	}
	dt := sess.DiagramType()
	stage := sess.CurrentStage()
	idx := stageIndex(dt, stage)
	if !dt.IsStaged() || idx < 0 || idx == len(stageSequences[dt])-1 {
		return e.Finish(ctx)
	}

	count, texts := sess.CurrentSelection()
	if count == 0 {
		e.view.Alert(e.tr.T("no_nodes_selected"))
		return ErrEmptySelection
	}
	// flow 的维度约束在推进时校验，选择时保持多选
	if dt == model.DiagramFlowMap && stage == model.StageDimensions && count != 1 {
		e.view.Alert(e.tr.T("select_one_dimension"))
		return ErrInvalidSelection
	}

	sess.Lock(sess.CurrentTabKey())
	if stage == model.StageDimensions {
		sess.StageData.Dimension = texts[0]
	} else {
		sess.StageData.SetParents(dt, texts)
	}

	// 代数推进 + 中止：在途投递随之失效
	sess.Guards().AdvanceGeneration()
	sess.Guards().Abort()
	sess.ResetBatch()

	next := stageSequences[dt][idx+1]
	sess.SetCurrentStage(next)
	e.fireStage(ctx, sess, next)

	e.refreshTabs(sess)
	e.view.SetProgressLabel(e.progressLabel(sess))
	return nil
}

func (e *Engine) refreshTabs(sess *session.Session) {
	tabs := sess.Tabs()
	views := make([]port.TabView, len(tabs))
	for i, t := range tabs {
		views[i] = port.TabView{Key: t.Key, Label: t.Label, Locked: t.Locked}
	}
	e.view.SetTabs(views)
	e.view.SetActiveTab(sess.CurrentTabKey())
}

// SwitchTab 切换页签；force 用于 DOM 失步自愈。
// 切入的页签为空且对当前阶段有效时补发一次请求。
func (e *Engine) SwitchTab(ctx context.Context, key string, currentScroll int, force bool) error {
	sess := e.Session()
	if sess == nil {
		return ErrSessionMissing
	}
	tab, changed, err := sess.SwitchTab(key, currentScroll, force)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	e.view.SetActiveTab(key)
	e.view.RestoreScroll(key, tab.ScrollOffset)

	if len(sess.TabNodes(key)) == 0 && e.tabValidForStage(sess, tab) {
		e.LoadNextBatch(ctx)
	}
	return nil
}

func (e *Engine) tabValidForStage(sess *session.Session, tab *session.Tab) bool {
	dt := sess.DiagramType()
	if !dt.IsStaged() {
		return true
	}
	if tab.Dynamic {
		return sess.CurrentStage() == fanOutStage(dt)
	}
	return tab.Mode == string(sess.CurrentStage())
}

// OnScroll 无限滚动：越过触发比例且不在扇出、不在加载中时追加一批。
func (e *Engine) OnScroll(ctx context.Context, scrollTop, viewport, content int) {
	sess := e.Session()
	if sess == nil || content <= 0 {
		return
	}
	if sess.DiagramType().IsStaged() && sess.CurrentStage() == fanOutStage(sess.DiagramType()) {
		return // 扇出阶段不做无限滚动
	}
	ratio := float64(scrollTop+viewport) / float64(content)
	if ratio < e.cfg.ScrollTriggerRatio {
		return
	}
	e.LoadNextBatch(ctx)
}

// LoadNextBatch 追加一批。isLoadingBatch 置位期间是 no-op。
func (e *Engine) LoadNextBatch(ctx context.Context) {
	sess := e.Session()
	if sess == nil {
		return
	}
	if sess.ID() == "" || sess.DiagramType() == "" {
		e.logger.Warn("next batch without session")
		return
	}
	if !sess.Guards().BeginLoading() {
		return
	}
	sess.AdvanceBatch()

	tab := sess.CurrentTab()
	req := &catapult.GenerateRequest{
		SessionID:          sess.ID(),
		DiagramType:        sess.DiagramType(),
		CenterTopic:        sess.Topic,
		EducationalContext: sess.Educational,
	}
	dt := sess.DiagramType()
	targetMode := ""
	tabKey := ""
	if tab != nil {
		targetMode = tab.Mode
		tabKey = tab.Key
	}
	switch {
	case dt.IsStaged():
		stage := sess.CurrentStage()
		req.Stage = stage
		parent := ""
		if tab != nil && tab.Dynamic {
			parent = tab.Mode
		}
		req.StageData = stagePayload(dt, &sess.StageData, stage, parent)
	case dt.IsTabbed():
		req.Mode = targetMode
	}
	e.launch(ctx, sess, catapult.PathNextBatch,
		[]launchSpec{{tabKey: tabKey, targetMode: targetMode, req: req}},
		dt == model.DiagramDoubleBubbleMap)
}

// ToggleSelect 切换节点选中态。锁定页签只抖动提示；
// tree/brace 的维度阶段单选；每 N 次选择后台上报一次遥测。
func (e *Engine) ToggleSelect(ctx context.Context, nodeID string) error {
	sess := e.Session()
	if sess == nil {
		return ErrSessionMissing
	}
	dt := sess.DiagramType()
	single := sess.CurrentStage() == model.StageDimensions &&
		(dt == model.DiagramTreeMap || dt == model.DiagramBraceMap)

	on, node, err := sess.ToggleSelect(nodeID, single)
	if err != nil {
		if errors.Is(err, session.ErrTabLocked) {
			e.view.Shake(sess.CurrentTabKey())
			return nil
		}
		return err
	}

	tabKey := sess.CurrentTabKey()
	if single && on {
		// 单选清空了旧选择，按实际状态重投整页签
		for _, n := range sess.TabNodes(tabKey) {
			e.view.SetSelected(tabKey, n.ID, n.Selected)
		}
	} else {
		e.view.SetSelected(tabKey, nodeID, on)
	}

	count := e.toggles.Add(1)
	if count%int64(e.cfg.TelemetryEvery) == 0 {
		telemetry := &catapult.SelectNodeRequest{
			SessionID: sess.ID(),
			NodeID:    nodeID,
			Selected:  on,
			NodeText:  node.DisplayText(),
		}
		e.batchWG.Add(1)
		go func() {
			defer e.batchWG.Done()
			if err := e.client.Post(context.WithoutCancel(ctx), catapult.PathSelectNode, telemetry); err != nil {
				e.logger.Debug("telemetry dropped", "error", err)
			}
		}()
	}
	return nil
}

// Finish 完成选择：预检渲染方法，收集选中节点，关面板、装配、重绘、记历史，
// 然后销毁会话。空选择或全部已入图时只弹提示，不关面板。
func (e *Engine) Finish(ctx context.Context) error {
	sess := e.Session()
	if sess == nil {
		return ErrSessionMissing
	}

	// 装配前确认宿主能重绘，避免改了 spec 却画不出来
	if !e.hasRenderMethod() {
		e.view.Alert(e.tr.T("cannot_render"))
		return ErrNoRenderMethod
	}

	all := sess.AllSelectedNodes()
	if len(all) == 0 {
		e.view.Alert(e.tr.T("no_nodes_selected"))
		return ErrEmptySelection
	}
	fresh := make([]*model.CandidateNode, 0, len(all))
	for _, n := range all {
		if !n.AddedToDiagram {
			fresh = append(fresh, n)
		}
	}
	if len(fresh) == 0 {
		e.view.Alert(e.tr.T("all_already_added"))
		return ErrEmptySelection
	}

	sess.Guards().Abort()
	if e.closing.CompareAndSwap(false, true) && e.panel != nil && sess.Mounted {
		e.panel.CloseNodePalettePanel()
	}
	// 面板过渡完成后再动 spec，避免重绘与关闭动画打架
	if e.cfg.CloseGap > 0 && sess.Mounted {
		time.Sleep(e.cfg.CloseGap)
	}

	spec := e.editor.Spec()
	if err := assemble.For(sess.DiagramType()).Assemble(spec, fresh, &sess.StageData, e.classifier()); err != nil {
		e.logger.Error("assembly failed", "diagram_type", sess.DiagramType(), "error", err)
		e.view.Alert(e.tr.T("render_failed", err.Error()))
		return err
	}

	if sess.DiagramType() == model.DiagramMindMap {
		if layouter, ok := e.editor.(port.MindMapLayouter); ok {
			layouter.RecalculateMindMapLayout()
		} else {
			e.logger.Warn("mindmap editor without layout recalculation")
		}
	}

	if err := e.render(spec); err != nil {
		// spec 全量落日志，内部状态保持原样以便重试
		e.logger.Error("render failed", "error", err, "spec", spec)
		e.view.Alert(e.tr.T("render_failed", err.Error()))
		return err
	}

	switch h := e.editor.(type) {
	case port.HistorySaver:
		h.SaveHistoryState("node_palette_add")
	case port.LegacyHistorySaver:
		h.SaveHistory("node_palette_add")
	}

	finishReq := &catapult.FinishRequest{
		SessionID:           sess.ID(),
		SelectedNodeIDs:     nodeIDs(all),
		TotalNodesGenerated: sess.TotalNodes(),
		BatchesLoaded:       sess.CurrentBatch(),
		DiagramType:         sess.DiagramType(),
	}
	e.batchWG.Add(1)
	go func() {
		defer e.batchWG.Done()
		if err := e.client.Post(context.WithoutCancel(ctx), catapult.PathFinish, finishReq); err != nil {
			e.logger.Debug("finish report dropped", "error", err)
		}
	}()

	e.store.Destroy(sess.ID())
	e.logger.Info("session finished", "session_id", sess.ID(), "added", len(fresh))
	return nil
}

// Cancel 用户取消：中止在途请求、上报、关面板、销毁会话。
func (e *Engine) Cancel(ctx context.Context) {
	e.teardown(ctx, true)
}

// HandlePanelClosed 面板管理器触发的关闭回调。
// 自己发起的关闭（Finish/Cancel）不再重复走取消路径。
func (e *Engine) HandlePanelClosed(ctx context.Context) {
	e.teardown(ctx, false)
}

func (e *Engine) teardown(ctx context.Context, closePanel bool) {
	alreadyClosing := e.closing.Swap(true)
	sess := e.Session()
	if sess == nil || alreadyClosing {
		return
	}
	sess.Guards().Abort()

	cancelReq := &catapult.CancelRequest{
		SessionID:           sess.ID(),
		DiagramType:         sess.DiagramType(),
		SelectedNodeIDs:     nodeIDs(sess.AllSelectedNodes()),
		TotalNodesGenerated: sess.TotalNodes(),
		BatchesLoaded:       sess.CurrentBatch(),
	}
	e.batchWG.Add(1)
	go func() {
		defer e.batchWG.Done()
		if err := e.client.Post(context.WithoutCancel(ctx), catapult.PathCancel, cancelReq); err != nil {
			e.logger.Debug("cancel report dropped", "error", err)
		}
	}()

	if closePanel && e.panel != nil && sess.Mounted {
		e.panel.CloseNodePalettePanel()
	}
	e.tracker.forceHide()
	e.store.Destroy(sess.ID())
	e.logger.Info("session cancelled", "session_id", sess.ID())
}

func (e *Engine) hasRenderMethod() bool {
	if _, ok := e.editor.(port.Renderer); ok {
		return true
	}
	if _, ok := e.editor.(port.SpecRenderer); ok {
		return true
	}
	_, ok := e.editor.(port.Updater)
	return ok
}

func (e *Engine) render(spec *diagram.Spec) error {
	if r, ok := e.editor.(port.Renderer); ok {
		return r.Render()
	}
	if r, ok := e.editor.(port.SpecRenderer); ok {
		return r.RenderDiagram(spec)
	}
	if r, ok := e.editor.(port.Updater); ok {
		return r.Update()
	}
	return ErrNoRenderMethod
}

// classifier 占位符判定：宿主带校验器时优先宿主
func (e *Engine) classifier() diagram.Classifier {
	if v, ok := e.editor.(port.PlaceholderValidator); ok {
		return v.IsPlaceholderText
	}
	return diagram.IsPlaceholder
}

func nodeIDs(nodes []*model.CandidateNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
