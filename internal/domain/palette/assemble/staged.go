package assemble

import (
	"sort"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// 分阶段类型的共同形状：父级来自既有 spec（真实内容）与 stageData，
// 叶子按 mode 归到父级名下。早期阶段页签的选择已沉淀进 stageData，
// 这里不再消费它们的节点。

// treeAssembler 树形图：两级 children，父级为类别
type treeAssembler struct{}

func (treeAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, sd *model.StageData, isPlaceholder diagram.Classifier) error {
	byMode := groupByMode(selected)
	consumeStageModes(byMode, model.StageDimensions, model.StageCategories)

	var out []diagram.Node
	seen := make(map[string]bool)

	// 既有真实类别保序保留，连同其真实叶子
	for _, c := range spec.Children {
		text := c.DisplayText()
		if text == "" || isPlaceholder(text) {
			continue
		}
		node := diagram.Node{Text: text}
		for _, leaf := range c.Children {
			lt := leaf.DisplayText()
			if lt != "" && !isPlaceholder(lt) {
				node.Children = append(node.Children, diagram.Node{Text: lt})
			}
		}
		node.Children = appendLeaves(node.Children, byMode, text)
		out = append(out, node)
		seen[text] = true
	}

	// stageData 的类别补齐（选中的类别必须出现在最终树里）
	for _, cat := range sd.Categories {
		if cat == "" || seen[cat] {
			continue
		}
		node := diagram.Node{Text: cat}
		node.Children = appendLeaves(node.Children, byMode, cat)
		out = append(out, node)
		seen[cat] = true
	}

	warnUnmatched(byMode, "tree leaf")

	if sd.Dimension != "" {
		spec.Dimension = sd.Dimension
	}
	spec.Children = out
	return nil
}

// braceAssembler 括号图：parts/subparts；
// 阶段二选出的部分即便没有子部分也必须出现在最终列表里。
type braceAssembler struct{}

func (braceAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, sd *model.StageData, isPlaceholder diagram.Classifier) error {
	byMode := groupByMode(selected)
	consumeStageModes(byMode, model.StageDimensions, model.StageParts)

	var out []diagram.BracePart
	seen := make(map[string]bool)

	for _, p := range spec.Parts {
		if p.Name == "" || isPlaceholder(p.Name) {
			continue
		}
		part := diagram.BracePart{Name: p.Name, Subparts: []diagram.Subpart{}}
		for _, sp := range p.Subparts {
			if sp.Name != "" && !isPlaceholder(sp.Name) {
				part.Subparts = append(part.Subparts, sp)
			}
		}
		part.Subparts = appendSubparts(part.Subparts, byMode, p.Name)
		out = append(out, part)
		seen[p.Name] = true
	}

	for _, name := range sd.Parts {
		if name == "" || seen[name] {
			continue
		}
		part := diagram.BracePart{Name: name, Subparts: []diagram.Subpart{}}
		part.Subparts = appendSubparts(part.Subparts, byMode, name)
		out = append(out, part)
		seen[name] = true
	}

	warnUnmatched(byMode, "brace subpart")

	if sd.Dimension != "" {
		spec.Dimension = sd.Dimension
	}
	if spec.Whole == "" {
		spec.Whole = spec.Topic
	}
	spec.Parts = out
	return nil
}

// flowAssembler 流程图：steps/substeps，尽量保留 sequence 线索
type flowAssembler struct{}

func (flowAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, sd *model.StageData, isPlaceholder diagram.Classifier) error {
	byMode := groupByMode(selected)
	consumeStageModes(byMode, model.StageDimensions, model.StageSteps)

	var out []diagram.FlowStep
	seen := make(map[string]bool)

	for _, st := range spec.Steps {
		if st.Text == "" || isPlaceholder(st.Text) {
			continue
		}
		step := diagram.FlowStep{Text: st.Text, Sequence: st.Sequence}
		for _, sub := range st.Substeps {
			if sub.Text != "" && !isPlaceholder(sub.Text) {
				step.Substeps = append(step.Substeps, sub)
			}
		}
		step.Substeps = appendSubsteps(step.Substeps, byMode, st.Text)
		out = append(out, step)
		seen[st.Text] = true
	}

	for _, text := range sd.Steps {
		if text == "" || seen[text] {
			continue
		}
		step := diagram.FlowStep{Text: text}
		step.Substeps = appendSubsteps(step.Substeps, byMode, text)
		out = append(out, step)
		seen[text] = true
	}

	for i := range out {
		if out[i].Sequence == 0 {
			out[i].Sequence = i + 1
		}
	}

	warnUnmatched(byMode, "flow substep")

	if sd.Dimension != "" {
		spec.Dimension = sd.Dimension
	}
	spec.Steps = out
	return nil
}

// consumeStageModes 丢掉早期阶段页签的节点（它们已沉淀进 stageData）
func consumeStageModes(byMode map[string][]*model.CandidateNode, stages ...model.Stage) {
	for _, stage := range stages {
		delete(byMode, string(stage))
	}
}

func appendLeaves(children []diagram.Node, byMode map[string][]*model.CandidateNode, parent string) []diagram.Node {
	for _, n := range byMode[parent] {
		text := n.DisplayText()
		if text == "" {
			continue
		}
		children = append(children, diagram.Node{Text: text})
		markAdded(n)
	}
	delete(byMode, parent)
	return children
}

func appendSubparts(subparts []diagram.Subpart, byMode map[string][]*model.CandidateNode, parent string) []diagram.Subpart {
	for _, n := range byMode[parent] {
		text := n.DisplayText()
		if text == "" {
			continue
		}
		subparts = append(subparts, diagram.Subpart{Name: text})
		markAdded(n)
	}
	delete(byMode, parent)
	return subparts
}

func appendSubsteps(substeps []diagram.Substep, byMode map[string][]*model.CandidateNode, parent string) []diagram.Substep {
	nodes := byMode[parent]
	if hasSequence(nodes) {
		nodes = append([]*model.CandidateNode(nil), nodes...)
		sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Sequence < nodes[j].Sequence })
	}
	for _, n := range nodes {
		text := n.DisplayText()
		if text == "" {
			continue
		}
		substeps = append(substeps, diagram.Substep{Text: text})
		markAdded(n)
	}
	delete(byMode, parent)
	return substeps
}

func hasSequence(nodes []*model.CandidateNode) bool {
	for _, n := range nodes {
		if n.Sequence > 0 {
			return true
		}
	}
	return false
}

func warnUnmatched(byMode map[string][]*model.CandidateNode, kind string) {
	for mode, nodes := range byMode {
		logger().Warn("selected nodes with unknown parent discarded",
			"kind", kind, "mode", mode, "count", len(nodes))
	}
}
