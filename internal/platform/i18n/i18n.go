// Package i18n 提供面板用到的最小翻译服务。
// 键缺失时回退为键名本身，保证 UI 永远有内容可显示。
package i18n

import (
	"fmt"
	"strings"
)

// Service 双语（en/zh）翻译服务
type Service struct {
	lang string
}

// New 创建翻译服务；不认识的语言回退英文
func New(lang string) *Service {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "zh" {
		lang = "en"
	}
	return &Service{lang: lang}
}

// Lang 返回当前语言（"en" 或 "zh"）
func (s *Service) Lang() string {
	return s.lang
}

// T 查表翻译；带参数的键使用 fmt 模板。缺失键返回键名本身。
func (s *Service) T(key string, args ...any) string {
	table, ok := translations[s.lang]
	if !ok {
		table = translations["en"]
	}
	pattern, ok := table[key]
	if !ok {
		if pattern, ok = translations["en"][key]; !ok {
			return key
		}
	}
	if len(args) == 0 {
		return pattern
	}
	return fmt.Sprintf(pattern, args...)
}

var translations = map[string]map[string]string{
	"en": {
		"next_stage_categories":  "Next: Select Categories",
		"next_stage_parts":       "Next: Select Parts",
		"next_stage_steps":       "Next: Select Steps",
		"next_stage_branches":    "Next: Select Branches",
		"next_stage_children":    "Next: Select Items",
		"next_stage_subparts":    "Next: Select Subparts",
		"next_stage_substeps":    "Next: Select Substeps",
		"finish_selection":       "Finish Selection",
		"no_nodes_selected":      "Please select at least one node first",
		"all_already_added":      "All selected nodes are already in the diagram",
		"cannot_render":          "Cannot render diagram",
		"render_failed":          "Failed to render diagram: %s",
		"generation_failed":      "Node generation failed: %s",
		"loading_nodes":          "Generating %s...",
		"llm_failed_badge":       "%s failed (%s)",
		"select_one_dimension":   "Please select exactly one dimension",
	},
	"zh": {
		"next_stage_categories":  "下一步：选择类别",
		"next_stage_parts":       "下一步：选择部分",
		"next_stage_steps":       "下一步：选择步骤",
		"next_stage_branches":    "下一步：选择分支",
		"next_stage_children":    "下一步：选择子项",
		"next_stage_subparts":    "下一步：选择子部分",
		"next_stage_substeps":    "下一步：选择子步骤",
		"finish_selection":       "完成选择",
		"no_nodes_selected":      "请先选择至少一个节点",
		"all_already_added":      "所选节点均已加入图示",
		"cannot_render":          "无法渲染图示",
		"render_failed":          "图示渲染失败：%s",
		"generation_failed":      "节点生成失败：%s",
		"loading_nodes":          "正在生成%s…",
		"llm_failed_badge":       "%s 失败（%s）",
		"select_one_dimension":   "请只选择一个维度",
	},
}
