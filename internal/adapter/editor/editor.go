// Package editor 内存版宿主编辑器：持有 spec，重绘时整体打印。
package editor

import (
	"encoding/json"
	"fmt"
	"io"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/model"
)

// Demo 演示编辑器，实现渲染与历史两个可选能力
type Demo struct {
	dt   model.DiagramType
	spec *diagram.Spec
	out  io.Writer
}

func NewDemo(dt model.DiagramType, spec *diagram.Spec, out io.Writer) *Demo {
	return &Demo{dt: dt, spec: spec, out: out}
}

func (d *Demo) DiagramType() model.DiagramType { return d.dt }
func (d *Demo) Spec() *diagram.Spec            { return d.spec }

func (d *Demo) Render() error {
	data, err := json.MarshalIndent(d.spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec failed: %w", err)
	}
	fmt.Fprintf(d.out, "🖼  rendered %s:\n%s\n", d.dt, data)
	return nil
}

func (d *Demo) SaveHistoryState(tag string) {
	fmt.Fprintf(d.out, "💾 history saved: %s\n", tag)
}
