package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

var (
	// ErrTabLocked 页签已锁定（只读），选中集不可再变更
	ErrTabLocked = errors.New("tab is locked")
	// ErrUnknownTab 页签不存在
	ErrUnknownTab = errors.New("unknown tab")
	// ErrUnknownNode 节点不在当前页签内
	ErrUnknownNode = errors.New("unknown node")
)

// Session 一次打开面板的会话。preload 可以先于 start 建立同名会话，
// start 复用它并保留已有页签内容。
type Session struct {
	mu sync.RWMutex

	id          string
	diagramType model.DiagramType

	Topic       string
	Snapshot    *diagram.Spec // 打开时的图示 spec 快照
	Educational *model.EducationalContext

	currentBatch int
	StageData    model.StageData

	currentStage model.Stage
	tabs         []*Tab
	currentTab   string

	// Mounted 标记 UI 是否已挂载；preload 阶段为 false
	Mounted bool

	guards    Guards
	createdAt time.Time
}

// New 创建会话
func New(id string, dt model.DiagramType, topic string, snapshot *diagram.Spec, edu *model.EducationalContext) *Session {
	return &Session{
		id:           id,
		diagramType:  dt,
		Topic:        topic,
		Snapshot:     snapshot.Clone(),
		Educational:  edu,
		currentBatch: 1,
		createdAt:    time.Now(),
	}
}

func (s *Session) ID() string                     { return s.id }
func (s *Session) DiagramType() model.DiagramType { return s.diagramType }

// Guards 运行时防护状态（仅供 Workflow Engine 使用）
func (s *Session) Guards() *Guards { return &s.guards }

// CurrentBatch 当前批次号
func (s *Session) CurrentBatch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBatch
}

// AdvanceBatch 批次号 +1（无限滚动）
func (s *Session) AdvanceBatch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBatch++
	return s.currentBatch
}

// ResetBatch 阶段推进时批次号归 1
func (s *Session) ResetBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBatch = 1
}

// CurrentStage 当前阶段（非分阶段类型为空）
func (s *Session) CurrentStage() model.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStage
}

// SetCurrentStage 切换阶段指针
func (s *Session) SetCurrentStage(stage model.Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStage = stage
}

// EnsureTab 确保页签存在；已存在时保留原内容（preload 幂等的关键）
func (s *Session) EnsureTab(key, label, mode string) *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.tabLocked(key); t != nil {
		return t
	}
	t := newTab(key, label, mode, false)
	s.tabs = append(s.tabs, t)
	if s.currentTab == "" {
		s.currentTab = key
	}
	return t
}

// InitStaticTabs 建立静态页签；幂等，不覆盖 preload 留下的内容
func (s *Session) InitStaticTabs(names []string) {
	for _, name := range names {
		s.EnsureTab(name, name, name)
	}
}

// InitDynamicTabs 扇出阶段的动态页签：保留已锁定的静态页签，
// 丢弃先前的动态页签，为每个父级建一个新页签并切换到第一个。
func (s *Session) InitDynamicTabs(parents []string) []*Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tabs[:0]
	for _, t := range s.tabs {
		if !t.Dynamic {
			kept = append(kept, t)
		}
	}
	s.tabs = kept

	created := make([]*Tab, 0, len(parents))
	for _, parent := range parents {
		t := newTab("tab_"+uuid.NewString()[:8], parent, parent, true)
		s.tabs = append(s.tabs, t)
		created = append(created, t)
	}
	if len(created) > 0 {
		s.currentTab = created[0].Key
	}
	return created
}

// Tab 按代理键查页签
func (s *Session) Tab(key string) (*Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tabLocked(key)
	return t, t != nil
}

// TabByMode 按 mode 归属查页签（节点入库时的匹配入口）
func (s *Session) TabByMode(mode string) (*Tab, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tabs {
		if t.Mode == mode {
			return t, true
		}
	}
	return nil, false
}

// Tabs 页签快照（浅拷贝切片）
func (s *Session) Tabs() []*Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Tab(nil), s.tabs...)
}

// CurrentTabKey 活动页签键
func (s *Session) CurrentTabKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTab
}

// CurrentTab 活动页签
func (s *Session) CurrentTab() *Tab {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tabLocked(s.currentTab)
}

// SwitchTab 切换页签：记下旧页签滚动位置，换入目标页签。
// force 用于视图失步自愈：DOM 声称的活动页签与 currentTab 不一致时，
// 即便 key == currentTab 也允许重新切入。
func (s *Session) SwitchTab(key string, currentScroll int, force bool) (*Tab, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := s.tabLocked(key)
	if target == nil {
		return nil, false, ErrUnknownTab
	}
	if key == s.currentTab && !force {
		return target, false, nil
	}

	if prev := s.tabLocked(s.currentTab); prev != nil {
		prev.ScrollOffset = currentScroll
	}
	s.currentTab = key
	return target, true, nil
}

// SaveScroll 记录页签滚动位置
func (s *Session) SaveScroll(key string, offset int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.tabLocked(key); t != nil {
		t.ScrollOffset = offset
	}
}

// TabNodes 页签节点快照。流式入库与 UI 读取并发，读取方走这里
func (s *Session) TabNodes(key string) []*model.CandidateNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tabLocked(key)
	if t == nil {
		return nil
	}
	return append([]*model.CandidateNode(nil), t.Nodes...)
}

// CurrentSelection 当前页签的选中数与文本（到达顺序）
func (s *Session) CurrentSelection() (int, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := s.tabLocked(s.currentTab)
	if t == nil {
		return 0, nil
	}
	return t.SelectionCount(), t.SelectedTexts()
}

// AddNode 节点入库到指定页签
func (s *Session) AddNode(tabKey string, n *model.CandidateNode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tabLocked(tabKey)
	if t == nil {
		return ErrUnknownTab
	}
	t.Nodes = append(t.Nodes, n)
	return nil
}

// ToggleSelect 切换当前页签内某节点的选中态。
// 锁定页签拒绝变更；singleSelect 先清空同页签的其他选择。
func (s *Session) ToggleSelect(nodeID string, singleSelect bool) (bool, *model.CandidateNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.tabLocked(s.currentTab)
	if t == nil {
		return false, nil, ErrUnknownTab
	}
	if t.Locked {
		return false, nil, ErrTabLocked
	}
	n := t.node(nodeID)
	if n == nil {
		return false, nil, ErrUnknownNode
	}

	if t.IsSelected(nodeID) {
		delete(t.selected, nodeID)
		n.Selected = false
		return false, n, nil
	}

	if singleSelect {
		t.clearSelection()
	}
	t.selected[nodeID] = struct{}{}
	n.Selected = true
	return true, n, nil
}

// Lock 将页签标记为只读
func (s *Session) Lock(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.tabLocked(key); t != nil {
		t.Locked = true
	}
}

// AllSelectedNodes 按页签声明顺序汇总所有选中的节点
func (s *Session) AllSelectedNodes() []*model.CandidateNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.CandidateNode
	for _, t := range s.tabs {
		out = append(out, t.SelectedNodes()...)
	}
	return out
}

// TotalNodes 会话收到的节点总数
func (s *Session) TotalNodes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, t := range s.tabs {
		total += len(t.Nodes)
	}
	return total
}

func (s *Session) tabLocked(key string) *Tab {
	for _, t := range s.tabs {
		if t.Key == key {
			return t
		}
	}
	return nil
}
