package engine

import (
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// 各分阶段类型的阶段序列；末位阶段即扇出阶段
var stageSequences = map[model.DiagramType][]model.Stage{
	model.DiagramTreeMap:  {model.StageDimensions, model.StageCategories, model.StageChildren},
	model.DiagramBraceMap: {model.StageDimensions, model.StageParts, model.StageSubparts},
	model.DiagramMindMap:  {model.StageBranches, model.StageChildren},
	model.DiagramFlowMap:  {model.StageDimensions, model.StageSteps, model.StageSubsteps},
}

func stageIndex(dt model.DiagramType, stage model.Stage) int {
	for i, s := range stageSequences[dt] {
		if s == stage {
			return i
		}
	}
	return -1
}

func fanOutStage(dt model.DiagramType) model.Stage {
	seq := stageSequences[dt]
	if len(seq) == 0 {
		return ""
	}
	return seq[len(seq)-1]
}

// resumeStage 按传入的图示 spec 推断续接阶段。
// 已有维度但无真实父级 -> 父级阶段；有真实（非占位）父级 -> 扇出阶段并返回父级文本。
func resumeStage(dt model.DiagramType, spec *diagram.Spec, isPlaceholder diagram.Classifier) (model.Stage, []string) {
	switch dt {
	case model.DiagramTreeMap:
		if spec.Dimension == "" {
			return model.StageDimensions, nil
		}
		if parents := realChildTexts(spec.Children, isPlaceholder); len(parents) > 0 {
			return model.StageChildren, parents
		}
		return model.StageCategories, nil

	case model.DiagramBraceMap:
		if spec.Dimension == "" {
			return model.StageDimensions, nil
		}
		var parents []string
		for _, p := range spec.Parts {
			if p.Name != "" && !isPlaceholder(p.Name) {
				parents = append(parents, p.Name)
			}
		}
		if len(parents) > 0 {
			return model.StageSubparts, parents
		}
		return model.StageParts, nil

	case model.DiagramMindMap:
		if parents := realChildTexts(spec.Children, isPlaceholder); len(parents) > 0 {
			return model.StageChildren, parents
		}
		return model.StageBranches, nil

	case model.DiagramFlowMap:
		if spec.Dimension == "" {
			return model.StageDimensions, nil
		}
		var parents []string
		for _, st := range spec.Steps {
			if st.Text != "" && !isPlaceholder(st.Text) {
				parents = append(parents, st.Text)
			}
		}
		if len(parents) > 0 {
			return model.StageSubsteps, parents
		}
		return model.StageSteps, nil
	}
	return "", nil
}

func realChildTexts(children []diagram.Node, isPlaceholder diagram.Classifier) []string {
	var out []string
	for _, c := range children {
		text := c.DisplayText()
		if text != "" && !isPlaceholder(text) {
			out = append(out, text)
		}
	}
	return out
}

// stagePayload 按阶段元数据拼出后端 stage_data。
// 中间阶段只带 dimension；扇出阶段追加父级字段（category_name 等）。
func stagePayload(dt model.DiagramType, sd *model.StageData, stage model.Stage, parent string) map[string]string {
	am := diagram.ArrayFor(dt, string(stage))
	if am.ParentField == "" {
		return nil
	}
	payload := make(map[string]string, 2)
	if sd.Dimension != "" {
		payload["dimension"] = sd.Dimension
	}
	if parent != "" && am.ParentField != "dimension" {
		payload[am.ParentField] = parent
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
