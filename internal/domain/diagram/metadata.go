package diagram

import "nodepalette/internal/domain/palette/model"

// ArrayMeta 单个目标数组的描述
type ArrayMeta struct {
	ArrayName      string // spec 中的默认目标字段
	PairArrayName  string // 成对数组的另一半（仅 differences）
	NodeName       string
	NodeNamePlural string
	NodeType       string
	ParentField    string // 子节点挂接父级时注入后端请求的字段名
}

// TypeMeta 按图示类型的静态元数据
type TypeMeta struct {
	ArrayMeta
	UseTabs   bool
	UseStages bool
	TabOrder  []string             // 页签/阶段的声明顺序
	Arrays    map[string]ArrayMeta // 页签名/阶段名 -> 描述
}

var registry = map[model.DiagramType]TypeMeta{
	model.DiagramCircleMap: {
		ArrayMeta: ArrayMeta{ArrayName: "context", NodeName: "context", NodeNamePlural: "contexts", NodeType: "context"},
	},
	model.DiagramBubbleMap: {
		ArrayMeta: ArrayMeta{ArrayName: "attributes", NodeName: "attribute", NodeNamePlural: "attributes", NodeType: "attribute"},
	},
	model.DiagramConceptMap: {
		ArrayMeta: ArrayMeta{ArrayName: "concepts", NodeName: "concept", NodeNamePlural: "concepts", NodeType: "concept"},
	},
	model.DiagramBridgeMap: {
		ArrayMeta: ArrayMeta{ArrayName: "analogies", NodeName: "analogy", NodeNamePlural: "analogies", NodeType: "analogy"},
	},
	model.DiagramDoubleBubbleMap: {
		ArrayMeta: ArrayMeta{ArrayName: "similarities", NodeName: "similarity", NodeNamePlural: "similarities", NodeType: "similarity"},
		UseTabs:   true,
		TabOrder:  []string{model.TabSimilarities, model.TabDifferences},
		Arrays: map[string]ArrayMeta{
			model.TabSimilarities: {ArrayName: "similarities", NodeName: "similarity", NodeNamePlural: "similarities", NodeType: "similarity"},
			model.TabDifferences:  {ArrayName: "left_differences", PairArrayName: "right_differences", NodeName: "difference", NodeNamePlural: "differences", NodeType: "difference"},
		},
	},
	model.DiagramMultiFlowMap: {
		ArrayMeta: ArrayMeta{ArrayName: "causes", NodeName: "cause", NodeNamePlural: "causes", NodeType: "cause"},
		UseTabs:   true,
		TabOrder:  []string{model.TabCauses, model.TabEffects},
		Arrays: map[string]ArrayMeta{
			model.TabCauses:  {ArrayName: "causes", NodeName: "cause", NodeNamePlural: "causes", NodeType: "cause"},
			model.TabEffects: {ArrayName: "effects", NodeName: "effect", NodeNamePlural: "effects", NodeType: "effect"},
		},
	},
	model.DiagramTreeMap: {
		ArrayMeta: ArrayMeta{ArrayName: "children", NodeName: "category", NodeNamePlural: "categories", NodeType: "category"},
		UseTabs:   true,
		UseStages: true,
		TabOrder:  []string{string(model.StageDimensions), string(model.StageCategories), string(model.StageChildren)},
		Arrays: map[string]ArrayMeta{
			string(model.StageDimensions): {ArrayName: "dimension", NodeName: "dimension", NodeNamePlural: "dimensions", NodeType: "dimension"},
			string(model.StageCategories): {ArrayName: "children", NodeName: "category", NodeNamePlural: "categories", NodeType: "category", ParentField: "dimension"},
			string(model.StageChildren):   {ArrayName: "children", NodeName: "item", NodeNamePlural: "items", NodeType: "leaf", ParentField: "category_name"},
		},
	},
	model.DiagramBraceMap: {
		ArrayMeta: ArrayMeta{ArrayName: "parts", NodeName: "part", NodeNamePlural: "parts", NodeType: "part"},
		UseTabs:   true,
		UseStages: true,
		TabOrder:  []string{string(model.StageDimensions), string(model.StageParts), string(model.StageSubparts)},
		Arrays: map[string]ArrayMeta{
			string(model.StageDimensions): {ArrayName: "dimension", NodeName: "dimension", NodeNamePlural: "dimensions", NodeType: "dimension"},
			string(model.StageParts):      {ArrayName: "parts", NodeName: "part", NodeNamePlural: "parts", NodeType: "part", ParentField: "dimension"},
			string(model.StageSubparts):   {ArrayName: "parts", NodeName: "subpart", NodeNamePlural: "subparts", NodeType: "subpart", ParentField: "part_name"},
		},
	},
	model.DiagramMindMap: {
		ArrayMeta: ArrayMeta{ArrayName: "children", NodeName: "branch", NodeNamePlural: "branches", NodeType: "branch"},
		UseTabs:   true,
		UseStages: true,
		TabOrder:  []string{string(model.StageBranches), string(model.StageChildren)},
		Arrays: map[string]ArrayMeta{
			string(model.StageBranches): {ArrayName: "children", NodeName: "branch", NodeNamePlural: "branches", NodeType: "branch"},
			string(model.StageChildren): {ArrayName: "children", NodeName: "child", NodeNamePlural: "children", NodeType: "child", ParentField: "branch_name"},
		},
	},
	model.DiagramFlowMap: {
		ArrayMeta: ArrayMeta{ArrayName: "steps", NodeName: "step", NodeNamePlural: "steps", NodeType: "step"},
		UseTabs:   true,
		UseStages: true,
		TabOrder:  []string{string(model.StageDimensions), string(model.StageSteps), string(model.StageSubsteps)},
		Arrays: map[string]ArrayMeta{
			string(model.StageDimensions): {ArrayName: "dimension", NodeName: "dimension", NodeNamePlural: "dimensions", NodeType: "dimension"},
			string(model.StageSteps):      {ArrayName: "steps", NodeName: "step", NodeNamePlural: "steps", NodeType: "step", ParentField: "dimension"},
			string(model.StageSubsteps):   {ArrayName: "steps", NodeName: "substep", NodeNamePlural: "substeps", NodeType: "substep", ParentField: "step_name"},
		},
	},
}

// MetaFor 按图示类型查询元数据。未知类型回退到 circle_map 的描述，
// 调用方需容忍该回退。
func MetaFor(dt model.DiagramType) TypeMeta {
	if m, ok := registry[dt]; ok {
		return m
	}
	return registry[model.DiagramCircleMap]
}

// ArrayFor 查询某页签/阶段的数组描述；非页签类型返回默认描述
func ArrayFor(dt model.DiagramType, tab string) ArrayMeta {
	m := MetaFor(dt)
	if m.Arrays != nil {
		if am, ok := m.Arrays[tab]; ok {
			return am
		}
	}
	return m.ArrayMeta
}
