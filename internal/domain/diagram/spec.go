package diagram

// Spec 宿主编辑器持有的图示规格。十种图示类型共用一个结构，
// 各类型只使用自己的字段；Assembler 是唯一的写入方。
type Spec struct {
	Topic     string `json:"topic,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	Whole     string `json:"whole,omitempty"`

	Context          []string `json:"context,omitempty"`      // circle_map
	Attributes       []string `json:"attributes,omitempty"`   // bubble_map
	Similarities     []string `json:"similarities,omitempty"` // double_bubble_map
	LeftDifferences  []string `json:"left_differences,omitempty"`
	RightDifferences []string `json:"right_differences,omitempty"`
	Causes           []string `json:"causes,omitempty"` // multi_flow_map
	Effects          []string `json:"effects,omitempty"`
	Concepts         []string `json:"concepts,omitempty"` // concept_map

	Analogies []Analogy   `json:"analogies,omitempty"` // bridge_map
	Children  []Node      `json:"children,omitempty"`  // tree_map / mindmap（两级）
	Parts     []BracePart `json:"parts,omitempty"`     // brace_map
	Steps     []FlowStep  `json:"steps,omitempty"`     // flow_map
}

// Analogy 桥形图的一组类比
type Analogy struct {
	Left      string `json:"left"`
	Right     string `json:"right"`
	Dimension string `json:"dimension,omitempty"`
	ID        int    `json:"id"`
}

// Node 树形图/思维导图的子节点。树形图只用 Text；
// 思维导图的分支带稳定 ID 与 Label。
type Node struct {
	ID       string `json:"id,omitempty"`
	Label    string `json:"label,omitempty"`
	Text     string `json:"text,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// DisplayText 分支的展示文本（Label 优先）
func (n *Node) DisplayText() string {
	if n.Label != "" {
		return n.Label
	}
	return n.Text
}

// BracePart 括号图的部分与子部分
type BracePart struct {
	Name     string     `json:"name"`
	Subparts []Subpart  `json:"subparts"`
}

// Subpart 括号图子部分
type Subpart struct {
	Name string `json:"name"`
}

// FlowStep 流程图的步骤；子步骤挂在各自步骤之下
type FlowStep struct {
	Text     string    `json:"text"`
	Sequence int       `json:"sequence,omitempty"`
	Substeps []Substep `json:"substeps,omitempty"`
}

// Substep 流程图子步骤
type Substep struct {
	Text string `json:"text"`
}

// Clone 深拷贝，供会话快照使用
func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	c := *s
	c.Context = append([]string(nil), s.Context...)
	c.Attributes = append([]string(nil), s.Attributes...)
	c.Similarities = append([]string(nil), s.Similarities...)
	c.LeftDifferences = append([]string(nil), s.LeftDifferences...)
	c.RightDifferences = append([]string(nil), s.RightDifferences...)
	c.Causes = append([]string(nil), s.Causes...)
	c.Effects = append([]string(nil), s.Effects...)
	c.Concepts = append([]string(nil), s.Concepts...)
	c.Analogies = append([]Analogy(nil), s.Analogies...)
	c.Children = cloneNodes(s.Children)
	c.Parts = make([]BracePart, len(s.Parts))
	for i, p := range s.Parts {
		c.Parts[i] = BracePart{Name: p.Name, Subparts: append([]Subpart(nil), p.Subparts...)}
	}
	c.Steps = make([]FlowStep, len(s.Steps))
	for i, st := range s.Steps {
		c.Steps[i] = FlowStep{Text: st.Text, Sequence: st.Sequence, Substeps: append([]Substep(nil), st.Substeps...)}
	}
	return &c
}

func cloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = Node{ID: n.ID, Label: n.Label, Text: n.Text, Children: cloneNodes(n.Children)}
	}
	return out
}
