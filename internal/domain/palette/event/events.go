package event

import "nodepalette/internal/domain/palette/model"

// Type SSE 帧内的事件类型标识
type Type string

const (
	TypeBatchStart    Type = "batch_start"
	TypeNodeGenerated Type = "node_generated"
	TypeLLMComplete   Type = "llm_complete"
	TypeLLMError      Type = "llm_error"
	TypeBatchComplete Type = "batch_complete"
	TypeError         Type = "error"
)

// StreamEvent 一帧 `data: <json>` 的统一载荷。
// 各事件只使用自己的字段，其余保持零值省略。
type StreamEvent struct {
	Type Type `json:"type"`

	// batch_start
	LLMCount int `json:"llm_count,omitempty"`

	// node_generated
	Node *model.CandidateNode `json:"node,omitempty"`

	// llm_complete / llm_error
	LLM              string             `json:"llm,omitempty"`
	UniqueNodes      int                `json:"unique_nodes,omitempty"`
	Duplicates       int                `json:"duplicates,omitempty"`
	DurationMs       int64              `json:"duration_ms,omitempty"`
	ErrorType        model.LLMErrorType `json:"error_type,omitempty"`
	Error            string             `json:"error,omitempty"`
	NodesBeforeError int                `json:"nodes_before_error,omitempty"`

	// batch_complete
	NewUniqueNodes int `json:"new_unique_nodes,omitempty"`
	TotalNodes     int `json:"total_nodes,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// NewBatchStart 创建批次开始事件
func NewBatchStart(llmCount int) StreamEvent {
	return StreamEvent{Type: TypeBatchStart, LLMCount: llmCount}
}

// NewNodeGenerated 创建节点产出事件
func NewNodeGenerated(node *model.CandidateNode) StreamEvent {
	return StreamEvent{Type: TypeNodeGenerated, Node: node}
}

// NewLLMComplete 创建单个 LLM 完成事件
func NewLLMComplete(llm string, uniqueNodes, duplicates int, durationMs int64) StreamEvent {
	return StreamEvent{
		Type:        TypeLLMComplete,
		LLM:         llm,
		UniqueNodes: uniqueNodes,
		Duplicates:  duplicates,
		DurationMs:  durationMs,
	}
}

// NewLLMError 创建单个 LLM 失败事件；批次不中止，其余 LLM 继续
func NewLLMError(llm string, errorType model.LLMErrorType, message string, nodesBeforeError int) StreamEvent {
	return StreamEvent{
		Type:             TypeLLMError,
		LLM:              llm,
		ErrorType:        errorType,
		Error:            message,
		NodesBeforeError: nodesBeforeError,
	}
}

// NewBatchComplete 创建批次完成事件
func NewBatchComplete(newUnique, total int) StreamEvent {
	return StreamEvent{Type: TypeBatchComplete, NewUniqueNodes: newUnique, TotalNodes: total}
}

// NewStreamError 创建流级错误事件
func NewStreamError(message string) StreamEvent {
	return StreamEvent{Type: TypeError, Message: message}
}
