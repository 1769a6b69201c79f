package assemble

import (
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// doubleBubbleAssembler 双气泡图：similarities 单数组，
// differences 为等长的左右成对数组。缺半边的 differences 节点按畸形丢弃。
type doubleBubbleAssembler struct{}

func (doubleBubbleAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, _ *model.StageData, isPlaceholder diagram.Classifier) error {
	byMode := groupByMode(selected)

	similarities := keepUserEntries(spec.Similarities, isPlaceholder)
	for _, n := range byMode[model.TabSimilarities] {
		if n.Text == "" {
			logger().Warn("similarity without text skipped", "node_id", n.ID)
			continue
		}
		similarities = append(similarities, n.Text)
		markAdded(n)
	}

	// 既有成对条目只在两侧都是真实内容时保留，维持等长
	var left, right []string
	pairs := len(spec.LeftDifferences)
	if len(spec.RightDifferences) < pairs {
		pairs = len(spec.RightDifferences)
	}
	for i := 0; i < pairs; i++ {
		l, r := spec.LeftDifferences[i], spec.RightDifferences[i]
		if l == "" || r == "" || isPlaceholder(l) || isPlaceholder(r) {
			continue
		}
		left = append(left, l)
		right = append(right, r)
	}

	for _, n := range byMode[model.TabDifferences] {
		if n.Left == "" || n.Right == "" {
			logger().Warn("difference missing a side, discarded",
				"node_id", n.ID, "left", n.Left, "right", n.Right)
			continue
		}
		left = append(left, n.Left)
		right = append(right, n.Right)
		markAdded(n)
	}

	spec.Similarities = similarities
	spec.LeftDifferences = left
	spec.RightDifferences = right
	return nil
}

// multiFlowAssembler 复流图：causes 与 effects 两个独立数组
type multiFlowAssembler struct{}

func (multiFlowAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, _ *model.StageData, isPlaceholder diagram.Classifier) error {
	byMode := groupByMode(selected)

	causes := keepUserEntries(spec.Causes, isPlaceholder)
	for _, n := range byMode[model.TabCauses] {
		if n.Text == "" {
			logger().Warn("cause without text skipped", "node_id", n.ID)
			continue
		}
		causes = append(causes, n.Text)
		markAdded(n)
	}

	effects := keepUserEntries(spec.Effects, isPlaceholder)
	for _, n := range byMode[model.TabEffects] {
		if n.Text == "" {
			logger().Warn("effect without text skipped", "node_id", n.ID)
			continue
		}
		effects = append(effects, n.Text)
		markAdded(n)
	}

	spec.Causes = causes
	spec.Effects = effects
	return nil
}

// bridgeAssembler 桥形图：选中节点成为类比对，id 按最终顺序从 1 重排
type bridgeAssembler struct{}

func (bridgeAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, _ *model.StageData, isPlaceholder diagram.Classifier) error {
	var analogies []diagram.Analogy
	for _, a := range spec.Analogies {
		if a.Left == "" || a.Right == "" || isPlaceholder(a.Left) || isPlaceholder(a.Right) {
			continue
		}
		analogies = append(analogies, a)
	}

	for _, n := range selected {
		if n.Left == "" || n.Right == "" {
			logger().Warn("analogy missing a side, discarded",
				"node_id", n.ID, "left", n.Left, "right", n.Right)
			continue
		}
		analogies = append(analogies, diagram.Analogy{
			Left:      n.Left,
			Right:     n.Right,
			Dimension: n.Dimension,
		})
		markAdded(n)
	}

	for i := range analogies {
		analogies[i].ID = i + 1
	}
	spec.Analogies = analogies
	return nil
}
