// Package assemble 把扁平的候选节点装配进各图示类型的结构化 spec。
// 占位符识别与剔除只发生在这一层，流式入库路径不做判断。
package assemble

import (
	"log/slog"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
	applog "nodepalette/internal/platform/log"
)

// Assembler 一种图示类型的装配策略。selected 为尚未入图的选中节点；
// 成功写入的节点被标记 AddedToDiagram。
type Assembler interface {
	Assemble(spec *diagram.Spec, selected []*model.CandidateNode, sd *model.StageData, isPlaceholder diagram.Classifier) error
}

var strategies = map[model.DiagramType]Assembler{
	model.DiagramCircleMap: arrayAssembler{
		get: func(s *diagram.Spec) []string { return s.Context },
		set: func(s *diagram.Spec, v []string) { s.Context = v },
	},
	model.DiagramBubbleMap: arrayAssembler{
		get: func(s *diagram.Spec) []string { return s.Attributes },
		set: func(s *diagram.Spec, v []string) { s.Attributes = v },
	},
	model.DiagramConceptMap: arrayAssembler{
		get: func(s *diagram.Spec) []string { return s.Concepts },
		set: func(s *diagram.Spec, v []string) { s.Concepts = v },
	},
	model.DiagramDoubleBubbleMap: doubleBubbleAssembler{},
	model.DiagramMultiFlowMap:    multiFlowAssembler{},
	model.DiagramBridgeMap:       bridgeAssembler{},
	model.DiagramTreeMap:         treeAssembler{},
	model.DiagramBraceMap:        braceAssembler{},
	model.DiagramFlowMap:         flowAssembler{},
	model.DiagramMindMap:         mindMapAssembler{},
}

// For 按图示类型取装配策略；未知类型回退 circle_map
func For(dt model.DiagramType) Assembler {
	if a, ok := strategies[dt]; ok {
		return a
	}
	return strategies[model.DiagramCircleMap]
}

func logger() *slog.Logger {
	return applog.With("component", "assembler")
}

// keepUserEntries 剔除占位符，保序保留用户条目
func keepUserEntries(entries []string, isPlaceholder diagram.Classifier) []string {
	var out []string
	for _, s := range entries {
		if s != "" && !isPlaceholder(s) {
			out = append(out, s)
		}
	}
	return out
}

// groupByMode 按 mode 分组（到达顺序不变）
func groupByMode(selected []*model.CandidateNode) map[string][]*model.CandidateNode {
	byMode := make(map[string][]*model.CandidateNode)
	for _, n := range selected {
		byMode[n.Mode] = append(byMode[n.Mode], n)
	}
	return byMode
}

func markAdded(nodes ...*model.CandidateNode) {
	for _, n := range nodes {
		n.AddedToDiagram = true
	}
}

// arrayAssembler 单数组类型（circle/bubble/concept）：
// 用户条目保序保留，选中节点按到达顺序追加。
type arrayAssembler struct {
	get func(*diagram.Spec) []string
	set func(*diagram.Spec, []string)
}

func (a arrayAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, _ *model.StageData, isPlaceholder diagram.Classifier) error {
	out := keepUserEntries(a.get(spec), isPlaceholder)
	for _, n := range selected {
		text := n.DisplayText()
		if text == "" {
			logger().Warn("node without text skipped", "node_id", n.ID)
			continue
		}
		out = append(out, text)
		markAdded(n)
	}
	a.set(spec, out)
	return nil
}
