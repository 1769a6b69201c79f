package catapult

import (
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// 后端端点路径
const (
	PathStart      = "/thinking_mode/node_palette/start"
	PathNextBatch  = "/thinking_mode/node_palette/next_batch"
	PathSelectNode = "/thinking_mode/node_palette/select_node"
	PathCancel     = "/thinking_mode/node_palette/cancel"
	PathFinish     = "/thinking_mode/node_palette/finish"
)

// GenerateRequest /start 与 /next_batch 的请求体。
// /next_batch 不带 diagram_data，改带 center_topic。
type GenerateRequest struct {
	SessionID          string                    `json:"session_id"`
	DiagramType        model.DiagramType         `json:"diagram_type"`
	DiagramData        *diagram.Spec             `json:"diagram_data,omitempty"`
	CenterTopic        string                    `json:"center_topic,omitempty"`
	EducationalContext *model.EducationalContext `json:"educational_context,omitempty"`

	Mode      string            `json:"mode,omitempty"`       // 多页签非分阶段类型
	Stage     model.Stage       `json:"stage,omitempty"`      // 分阶段类型
	StageData map[string]string `json:"stage_data,omitempty"` // 分阶段类型
}

// SelectNodeRequest /select_node 遥测请求体（每 5 次选择上报一次）
type SelectNodeRequest struct {
	SessionID string `json:"session_id"`
	NodeID    string `json:"node_id"`
	Selected  bool   `json:"selected"`
	NodeText  string `json:"node_text"`
}

// CancelRequest /cancel 请求体
type CancelRequest struct {
	SessionID           string            `json:"session_id"`
	DiagramType         model.DiagramType `json:"diagram_type"`
	SelectedNodeIDs     []string          `json:"selected_node_ids"`
	TotalNodesGenerated int               `json:"total_nodes_generated"`
	BatchesLoaded       int               `json:"batches_loaded"`
}

// FinishRequest /finish 请求体
type FinishRequest struct {
	SessionID           string            `json:"session_id"`
	SelectedNodeIDs     []string          `json:"selected_node_ids"`
	TotalNodesGenerated int               `json:"total_nodes_generated"`
	BatchesLoaded       int               `json:"batches_loaded"`
	DiagramType         model.DiagramType `json:"diagram_type"`
}
