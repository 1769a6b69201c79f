package model

// CandidateNode 流式到达的候选节点。接收后不可变（Selected/AddedToDiagram 除外）。
// Mode 是权威归属标记：它指明节点属于哪个页签或阶段。
type CandidateNode struct {
	ID        string `json:"id"`
	Text      string `json:"text,omitempty"`
	Left      string `json:"left,omitempty"`
	Right     string `json:"right,omitempty"`
	Dimension string `json:"dimension,omitempty"`
	SourceLLM string `json:"source_llm"`
	Mode      string `json:"mode"`
	Sequence  int    `json:"sequence,omitempty"`

	BatchNumber    int  `json:"batch_number,omitempty"`
	Selected       bool `json:"selected,omitempty"`
	AddedToDiagram bool `json:"added_to_diagram,omitempty"`

	// 入库时盖上的阶段代数戳，用于丢弃迟到投递
	Generation int64 `json:"-"`
}

// IsPaired 判断是否为成对节点（differences / 类比）
func (n *CandidateNode) IsPaired() bool {
	return n.Text == "" && (n.Left != "" || n.Right != "")
}

// DisplayText 返回用于展示与父级匹配的文本
func (n *CandidateNode) DisplayText() string {
	if n.Text != "" {
		return n.Text
	}
	if n.Left != "" || n.Right != "" {
		return n.Left + " / " + n.Right
	}
	return ""
}

// EducationalContext 可选的教学上下文
type EducationalContext struct {
	Grade   string `json:"grade,omitempty"`
	Subject string `json:"subject,omitempty"`
}

// StageData 用户各阶段的累计选择
type StageData struct {
	Dimension  string   `json:"dimension,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Parts      []string `json:"parts,omitempty"`
	Branches   []string `json:"branches,omitempty"`
	Steps      []string `json:"steps,omitempty"`
}

// SetParents 记录第二阶段选出的父级列表
func (sd *StageData) SetParents(dt DiagramType, parents []string) {
	switch dt {
	case DiagramTreeMap:
		sd.Categories = parents
	case DiagramBraceMap:
		sd.Parts = parents
	case DiagramMindMap:
		sd.Branches = parents
	case DiagramFlowMap:
		sd.Steps = parents
	}
}

// Parents 返回扇出阶段的父级列表
func (sd *StageData) Parents(dt DiagramType) []string {
	switch dt {
	case DiagramTreeMap:
		return sd.Categories
	case DiagramBraceMap:
		return sd.Parts
	case DiagramMindMap:
		return sd.Branches
	case DiagramFlowMap:
		return sd.Steps
	}
	return nil
}
