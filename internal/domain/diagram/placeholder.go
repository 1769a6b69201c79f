package diagram

import (
	"regexp"
	"strings"
)

// 占位符形态：默认生成的 "Context 3"、"Branch 1"、"New" 及中文等价写法。
// 只在装配层使用；流式入库路径不做占位符判断。
var (
	placeholderEN = regexp.MustCompile(`(?i)^(context|attribute|branch|new branch)\s*\d+$`)
	placeholderZH = regexp.MustCompile(`^(联想|属性|分支|新分支|新)\s*\d+$`)
)

// IsPlaceholder 判断文本是否为生成的占位符。
// 非占位符形态（含空串、纯空白）一律按用户内容处理，返回 false。
func IsPlaceholder(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.EqualFold(t, "new") || t == "新" {
		return true
	}
	if placeholderEN.MatchString(t) {
		return true
	}
	return placeholderZH.MatchString(t)
}

// Classifier 占位符判定函数。宿主编辑器提供更丰富的校验器时优先使用宿主的。
type Classifier func(string) bool
