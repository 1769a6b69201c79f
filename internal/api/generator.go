package api

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"nodepalette/internal/domain/diagram"
	"nodepalette/internal/domain/palette/catapult"
	"nodepalette/internal/domain/palette/event"
	"nodepalette/internal/domain/palette/model"
)

// generator 确定性的候选节点模板产线。每个模拟 LLM 一个 goroutine，
// 产出文本带 LLM 序号与批内序号，跨 LLM 不重复。
type generator struct {
	llmCount    int
	nodesPerLLM int
	delay       time.Duration
	failLLM     int
	failType    model.LLMErrorType
}

// stream 跑完一个批次：batch_start、各 LLM 的节点流、batch_complete
func (g *generator) stream(ctx context.Context, req *catapult.GenerateRequest, sw *sseWriter) {
	mode := resolveMode(req)
	base := baseText(req, mode)

	sw.send(event.NewBatchStart(g.llmCount))

	var total atomic.Int64
	var wg sync.WaitGroup
	for i := 1; i <= g.llmCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			g.emit(ctx, req, sw, mode, base, idx, &total)
		}(i)
	}
	wg.Wait()

	n := int(total.Load())
	sw.send(event.NewBatchComplete(n, n))
}

func (g *generator) emit(ctx context.Context, req *catapult.GenerateRequest, sw *sseWriter, mode, base string, idx int, total *atomic.Int64) {
	llm := fmt.Sprintf("llm-%d", idx)
	start := time.Now()

	if g.failLLM == idx {
		sw.send(event.NewNodeGenerated(g.node(req, mode, base, llm, idx, 1)))
		total.Add(1)
		sw.send(event.NewLLMError(llm, g.failType, "simulated provider failure", 1))
		return
	}

	for seq := 1; seq <= g.nodesPerLLM; seq++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		sw.send(event.NewNodeGenerated(g.node(req, mode, base, llm, idx, seq)))
		total.Add(1)
		if g.delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(g.delay):
			}
		}
	}
	sw.send(event.NewLLMComplete(llm, g.nodesPerLLM, 0, time.Since(start).Milliseconds()))
}

func (g *generator) node(req *catapult.GenerateRequest, mode, base, llm string, idx, seq int) *model.CandidateNode {
	n := &model.CandidateNode{
		ID:        uuid.NewString(),
		SourceLLM: llm,
		Mode:      mode,
	}
	if paired(req, mode) {
		n.Left = fmt.Sprintf("%s left %d.%d", base, idx, seq)
		n.Right = fmt.Sprintf("%s right %d.%d", base, idx, seq)
		n.Dimension = fmt.Sprintf("aspect %d", seq)
		return n
	}

	am := diagram.ArrayFor(req.DiagramType, arrayKey(req))
	n.Text = fmt.Sprintf("%s %s %d.%d", base, am.NodeName, idx, seq)
	if req.Stage == model.StageSubsteps || req.Stage == model.StageSteps {
		n.Sequence = seq
	}
	return n
}

// resolveMode 生成节点的归属标记：显式 mode 优先，分阶段请求在扇出阶段
// 用父级文本，其余阶段用阶段名，单页签类型落到节点类型。
func resolveMode(req *catapult.GenerateRequest) string {
	if req.Mode != "" {
		return req.Mode
	}
	if req.Stage != "" {
		am := diagram.ArrayFor(req.DiagramType, string(req.Stage))
		if am.ParentField != "" && am.ParentField != "dimension" {
			if parent := req.StageData[am.ParentField]; parent != "" {
				return parent
			}
		}
		return string(req.Stage)
	}
	return diagram.MetaFor(req.DiagramType).NodeType
}

func arrayKey(req *catapult.GenerateRequest) string {
	if req.Stage != "" {
		return string(req.Stage)
	}
	return req.Mode
}

// baseText 节点文本的主干：扇出阶段用父级，其余用中心主题
func baseText(req *catapult.GenerateRequest, mode string) string {
	if req.Stage != "" && mode != string(req.Stage) {
		return mode
	}
	if req.CenterTopic != "" {
		return req.CenterTopic
	}
	if req.DiagramData != nil && req.DiagramData.Topic != "" {
		return req.DiagramData.Topic
	}
	return "topic"
}

func paired(req *catapult.GenerateRequest, mode string) bool {
	return mode == model.TabDifferences || req.DiagramType == model.DiagramBridgeMap
}
