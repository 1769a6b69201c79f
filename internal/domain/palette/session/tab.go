package session

import "nodepalette/internal/domain/palette/model"

// Tab 会话内的一个命名槽位。动态页签的 Key 是代理键（uuid），
// Label/Mode 才是用户选出的父级文本；父级文本可能冲突或被改名，
// 所以 Key 不参与语义匹配。
type Tab struct {
	Key     string
	Label   string
	Mode    string // 节点 mode 的归属标记：静态页签 = 页签名；动态页签 = 父级文本
	Dynamic bool

	Nodes        []*model.CandidateNode
	ScrollOffset int
	Locked       bool

	selected map[string]struct{}
}

func newTab(key, label, mode string, dynamic bool) *Tab {
	return &Tab{
		Key:      key,
		Label:    label,
		Mode:     mode,
		Dynamic:  dynamic,
		selected: make(map[string]struct{}),
	}
}

// IsSelected 节点是否在选中集内
func (t *Tab) IsSelected(nodeID string) bool {
	_, ok := t.selected[nodeID]
	return ok
}

// SelectionCount 选中数
func (t *Tab) SelectionCount() int {
	return len(t.selected)
}

// SelectedNodes 按到达顺序返回选中的节点
func (t *Tab) SelectedNodes() []*model.CandidateNode {
	out := make([]*model.CandidateNode, 0, len(t.selected))
	for _, n := range t.Nodes {
		if _, ok := t.selected[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// SelectedIDs 按到达顺序返回选中的节点 id
func (t *Tab) SelectedIDs() []string {
	nodes := t.SelectedNodes()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// SelectedTexts 按到达顺序返回选中的节点文本
func (t *Tab) SelectedTexts() []string {
	nodes := t.SelectedNodes()
	texts := make([]string, len(nodes))
	for i, n := range nodes {
		texts[i] = n.DisplayText()
	}
	return texts
}

func (t *Tab) node(nodeID string) *model.CandidateNode {
	for _, n := range t.Nodes {
		if n.ID == nodeID {
			return n
		}
	}
	return nil
}

func (t *Tab) clearSelection() {
	for _, n := range t.Nodes {
		n.Selected = false
	}
	t.selected = make(map[string]struct{})
}
