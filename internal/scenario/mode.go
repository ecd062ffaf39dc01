package scenario

import (
	"strings"
)

// Mode 场景生成模式
type Mode string

const (
	// ModeAtomized 每条验收标准生成一个场景
	ModeAtomized Mode = "atomized"
	// ModeOptimized 按数量和主题合并为1到3个场景
	ModeOptimized Mode = "optimized"
	// ModeUltraOptimized 每个需求只生成一个场景
	ModeUltraOptimized Mode = "ultra-optimized"
)

// DefaultMode 默认生成模式
const DefaultMode = ModeOptimized

// ParseMode 解析生成模式，无法识别时使用默认模式
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAtomized:
		return ModeAtomized
	case ModeUltraOptimized:
		return ModeUltraOptimized
	default:
		return DefaultMode
	}
}

// Description 生成模式的说明文字，用于规则清单
func (m Mode) Description() string {
	switch ParseMode(string(m)) {
	case ModeAtomized:
		return "Atomized: one scenario per FIT criterion"
	case ModeUltraOptimized:
		return "Ultra-optimized: one scenario per requirement"
	default:
		return "Optimized: 1-3 scenarios per requirement, grouped by theme"
	}
}

// ScenarioCount 计算一个需求应生成的场景数量
// atomized 模式下没有验收标准时返回0，由调用方决定如何兜底
func ScenarioCount(criteria []string, mode Mode) int {
	switch ParseMode(string(mode)) {
	case ModeAtomized:
		return len(criteria)
	case ModeUltraOptimized:
		return 1
	}

	n := len(criteria)
	multi := len(GroupByTheme(criteria)) > 1

	// 多主题时无论数量都拆成3个场景
	switch {
	case multi:
		return 3
	case n <= 3:
		return 1
	case n <= 10:
		return 2
	default:
		return 3
	}
}

// EffectiveCount 实际渲染的场景数量，至少为1
func EffectiveCount(criteria []string, mode Mode) int {
	if k := ScenarioCount(criteria, mode); k > 1 {
		return k
	}
	return 1
}
