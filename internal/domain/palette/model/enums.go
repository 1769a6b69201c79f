package model

// DiagramType 图示类型
type DiagramType string

const (
	DiagramCircleMap       DiagramType = "circle_map"
	DiagramBubbleMap       DiagramType = "bubble_map"
	DiagramDoubleBubbleMap DiagramType = "double_bubble_map"
	DiagramTreeMap         DiagramType = "tree_map"
	DiagramBraceMap        DiagramType = "brace_map"
	DiagramFlowMap         DiagramType = "flow_map"
	DiagramMultiFlowMap    DiagramType = "multi_flow_map"
	DiagramBridgeMap       DiagramType = "bridge_map"
	DiagramMindMap         DiagramType = "mindmap"
	DiagramConceptMap      DiagramType = "concept_map"
)

// Stage 分阶段工作流中的阶段名
type Stage string

const (
	StageDimensions Stage = "dimensions"
	StageCategories Stage = "categories"
	StageParts      Stage = "parts"
	StageBranches   Stage = "branches"
	StageSteps      Stage = "steps"
	StageChildren   Stage = "children"
	StageSubparts   Stage = "subparts"
	StageSubsteps   Stage = "substeps"
)

// 静态页签名（非分阶段的多页签类型）
const (
	TabSimilarities = "similarities"
	TabDifferences  = "differences"
	TabCauses       = "causes"
	TabEffects      = "effects"
)

// LLMErrorType 单个 LLM 失败的分类
type LLMErrorType string

const (
	LLMErrorRateLimit     LLMErrorType = "rate_limit"
	LLMErrorContentFilter LLMErrorType = "content_filter"
	LLMErrorTimeout       LLMErrorType = "timeout"
	LLMErrorGeneric       LLMErrorType = "generic"
)

// IsStaged 判断类型是否走多阶段工作流
func (dt DiagramType) IsStaged() bool {
	switch dt {
	case DiagramTreeMap, DiagramBraceMap, DiagramMindMap, DiagramFlowMap:
		return true
	}
	return false
}

// IsTabbed 判断类型是否使用页签（含分阶段类型）
func (dt DiagramType) IsTabbed() bool {
	if dt.IsStaged() {
		return true
	}
	return dt == DiagramDoubleBubbleMap || dt == DiagramMultiFlowMap
}
