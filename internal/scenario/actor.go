package scenario

import (
	"regexp"
	"strings"
)

// DefaultActor 未能识别角色时使用的默认角色
const DefaultActor = "the user"

var (
	// actorPattern 匹配 "As a <角色>" / "As an <角色>"
	actorPattern = regexp.MustCompile(`(?i)\bas\s+an?\s+([^,.;:]+)`)
	// actorTail 角色短语之后常见的 "I want" 之类的从句
	actorTail = regexp.MustCompile(`(?i)\s+(i|we)\s+.*$`)
)

// InferActor 从需求文本中推断执行者
// 仅在 strict 打开时才尝试匹配 "As a[n] ..." 句式
func InferActor(text string, strict bool) string {
	if !strict {
		return DefaultActor
	}

	m := actorPattern.FindStringSubmatch(text)
	if m == nil {
		return DefaultActor
	}

	actor := strings.TrimSpace(actorTail.ReplaceAllString(m[1], ""))
	if actor == "" {
		return DefaultActor
	}
	return actor
}
