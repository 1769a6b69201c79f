package assemble

import (
	"fmt"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// mindMapAssembler 思维导图：mode == "branches" 的节点成为新顶层分支；
// 其余 mode 被当作分支名，节点挂为该分支的子节点。
// 新分支 id 为 branch_N（N 从保留分支数之后起）；子节点 id 为 child_<父id>_<序号>。
type mindMapAssembler struct{}

func (mindMapAssembler) Assemble(spec *diagram.Spec, selected []*model.CandidateNode, _ *model.StageData, isPlaceholder diagram.Classifier) error {
	var branches []diagram.Node
	for _, b := range spec.Children {
		text := b.DisplayText()
		if text == "" || isPlaceholder(text) {
			continue
		}
		kept := b
		kept.Children = nil
		for _, c := range b.Children {
			ct := c.DisplayText()
			if ct != "" && !isPlaceholder(ct) {
				kept.Children = append(kept.Children, c)
			}
		}
		branches = append(branches, kept)
	}
	for i := range branches {
		if branches[i].ID == "" {
			branches[i].ID = fmt.Sprintf("branch_%d", i+1)
		}
	}

	nextBranch := len(branches) + 1
	newBranch := func(label string) *diagram.Node {
		branches = append(branches, diagram.Node{
			ID:    fmt.Sprintf("branch_%d", nextBranch),
			Label: label,
			Text:  label,
		})
		nextBranch++
		return &branches[len(branches)-1]
	}

	findBranch := func(name string) *diagram.Node {
		for i := range branches {
			if branches[i].DisplayText() == name {
				return &branches[i]
			}
		}
		return nil
	}

	for _, n := range selected {
		text := n.DisplayText()
		if text == "" {
			logger().Warn("mindmap node without text skipped", "node_id", n.ID)
			continue
		}
		if n.Mode == string(model.StageBranches) {
			newBranch(text)
			markAdded(n)
			continue
		}

		parent := findBranch(n.Mode)
		if parent == nil {
			// 兜底：父分支不在图里时先把它建出来
			logger().Warn("mindmap parent branch missing, created",
				"node_id", n.ID, "branch", n.Mode)
			parent = newBranch(n.Mode)
		}
		parent.Children = append(parent.Children, diagram.Node{
			ID:    fmt.Sprintf("child_%s_%d", parent.ID, len(parent.Children)),
			Label: text,
			Text:  text,
		})
		markAdded(n)
	}

	spec.Children = branches
	return nil
}
