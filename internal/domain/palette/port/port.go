// Package port 声明面板核心依赖的宿主协作方接口。
// 图示渲染器、面板管理器、翻译服务与编辑器均在核心之外实现。
package port

import (
	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// Editor 宿主编辑器：持有当前图示 spec。
// 渲染/历史/布局能力通过下方的可选接口按需探测。
type Editor interface {
	DiagramType() model.DiagramType
	Spec() *diagram.Spec
}

// Renderer 无参重绘
type Renderer interface {
	Render() error
}

// SpecRenderer 以 spec 为参数的重绘
type SpecRenderer interface {
	RenderDiagram(spec *diagram.Spec) error
}

// Updater 通用刷新
type Updater interface {
	Update() error
}

// HistorySaver 历史记录（新接口）
type HistorySaver interface {
	SaveHistoryState(tag string)
}

// LegacyHistorySaver 历史记录（旧接口）
type LegacyHistorySaver interface {
	SaveHistory(tag string)
}

// MindMapLayouter 思维导图的节点位置由后端计算，落盘后必须重排
type MindMapLayouter interface {
	RecalculateMindMapLayout()
}

// PlaceholderValidator 宿主提供的占位符校验器；存在时优先于内置分类器
type PlaceholderValidator interface {
	IsPlaceholderText(text string) bool
}

// PanelManager 面板/窗口管理器
type PanelManager interface {
	CloseNodePalettePanel()
}

// Translator 翻译服务。键缺失时必须回退为键名本身。
type Translator interface {
	Lang() string
	T(key string, args ...any) string
}

// TabView 页签的视图投影
type TabView struct {
	Key    string
	Label  string
	Locked bool
}

// GalleryView 选择画廊视图。核心只通过该接口驱动 UI；
// 单测与 preload 使用 NopView。
type GalleryView interface {
	ShowLoading(label string)
	HideLoading()
	SetTabs(tabs []TabView)
	SetActiveTab(key string)
	AppendCard(tabKey string, node *model.CandidateNode)
	SetSelected(tabKey, nodeID string, selected bool)
	SetProgressLabel(label string)
	ShowLLMBadge(llm string, errorType model.LLMErrorType)
	Shake(tabKey string)
	Alert(message string)
	RestoreScroll(tabKey string, offset int)
}

// NopView 空实现，供 preload 与无界面场景使用
type NopView struct{}

func (NopView) ShowLoading(string)                          {}
func (NopView) HideLoading()                                {}
func (NopView) SetTabs([]TabView)                           {}
func (NopView) SetActiveTab(string)                         {}
func (NopView) AppendCard(string, *model.CandidateNode)     {}
func (NopView) SetSelected(string, string, bool)            {}
func (NopView) SetProgressLabel(string)                     {}
func (NopView) ShowLLMBadge(string, model.LLMErrorType)     {}
func (NopView) Shake(string)                                {}
func (NopView) Alert(string)                                {}
func (NopView) RestoreScroll(string, int)                   {}
