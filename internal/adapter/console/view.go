// Package console 终端版画廊视图与面板管理器，cmd/paletted 的演示宿主。
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"nodepalette/internal/domain/palette/model"
	"nodepalette/internal/domain/palette/port"
	applog "nodepalette/internal/platform/log"
)

// View 把画廊事件打到终端。AppendCard 会被多个流式 goroutine 并发调用
type View struct {
	mu sync.Mutex
	w  io.Writer
}

func NewView(w io.Writer) *View {
	return &View{w: w}
}

func (v *View) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.w, format+"\n", args...)
}

func (v *View) ShowLoading(label string) { v.printf("⏳ %s", label) }
func (v *View) HideLoading()             { v.printf("✅ generation settled") }

func (v *View) SetTabs(tabs []port.TabView) {
	labels := make([]string, 0, len(tabs))
	for _, tab := range tabs {
		label := tab.Label
		if tab.Locked {
			label += " 🔒"
		}
		labels = append(labels, label)
	}
	v.printf("🗂  %s", strings.Join(labels, " | "))
}

func (v *View) SetActiveTab(key string) { v.printf("➡️  tab %s", key) }

func (v *View) AppendCard(tabKey string, node *model.CandidateNode) {
	v.printf("  • [%s] %s  (%s)", tabKey, node.DisplayText(), node.SourceLLM)
}

func (v *View) SetSelected(tabKey, nodeID string, selected bool) {
	mark := "✔"
	if !selected {
		mark = "✖"
	}
	v.printf("  %s %s/%s", mark, tabKey, nodeID)
}

func (v *View) SetProgressLabel(label string) { v.printf("🔘 %s", label) }

func (v *View) ShowLLMBadge(llm string, errorType model.LLMErrorType) {
	v.printf("⚠️  %s failed (%s)", llm, errorType)
}

func (v *View) Shake(tabKey string)              { v.printf("🔒 tab %s is read-only", tabKey) }
func (v *View) Alert(message string)             { v.printf("❗ %s", message) }
func (v *View) RestoreScroll(tabKey string, o int) {}

// Panel 终端场景没有真实窗口可关，只记录日志
type Panel struct{}

func (Panel) CloseNodePalettePanel() {
	applog.Info("palette panel closed")
}
