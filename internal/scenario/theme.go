package scenario

import (
	"sort"
	"strings"
)

// MiscTheme 没有主题的验收标准所归入的分组
const MiscTheme = "misc"

// themeSeparators 主题与正文之间的分隔符
var themeSeparators = []string{":", "->", "=>", "→", "–", "—", "-"}

// bulletMarkers 列表项前缀符号
const bulletMarkers = "-*•"

// ThemeOf 从一条验收标准中提取主题
// 以第一个出现的分隔符切分，左侧部分即为主题
func ThemeOf(line string) (string, bool) {
	// 先去掉列表符号再找分隔符，否则 "- Login: ok" 会在行首的 "-" 处切分而没有主题
	body := StripBullets(line)

	idx, _ := firstSeparator(body)
	if idx < 0 {
		return "", false
	}

	theme := strings.ToLower(strings.TrimSpace(body[:idx]))
	theme = strings.TrimSpace(StripBullets(theme))
	if theme == "" {
		return "", false
	}
	return theme, true
}

// firstSeparator 返回最早出现的分隔符位置和长度
// 同一位置上较长的分隔符优先
func firstSeparator(s string) (int, int) {
	best, bestLen := -1, 0
	for _, sep := range themeSeparators {
		i := strings.Index(s, sep)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || (i == best && len(sep) > bestLen) {
			best, bestLen = i, len(sep)
		}
	}
	return best, bestLen
}

// StripBullets 去掉行首的列表符号和空白
func StripBullets(line string) string {
	return strings.TrimLeft(strings.TrimSpace(line), bulletMarkers+" \t")
}

// Group 同一主题下的验收标准
type Group struct {
	Label string   `json:"label"` // 主题名称或 misc
	Lines []string `json:"lines"` // 保持原始顺序
}

// Groups 按首次出现顺序排列的主题分组
type Groups []Group

// GroupByTheme 按主题对验收标准分组
func GroupByTheme(lines []string) Groups {
	groups := make(Groups, 0)
	index := make(map[string]int)

	for _, line := range lines {
		label, ok := ThemeOf(line)
		if !ok {
			label = MiscTheme
		}

		i, exists := index[label]
		if !exists {
			i = len(groups)
			index[label] = i
			groups = append(groups, Group{Label: label})
		}
		groups[i].Lines = append(groups[i].Lines, line)
	}

	return groups
}

// SortedBySize 按分组大小降序排列，大小相同时保持首次出现顺序
func (g Groups) SortedBySize() Groups {
	sorted := make(Groups, len(g))
	copy(sorted, g)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Lines) > len(sorted[j].Lines)
	})
	return sorted
}

// Labels 返回全部主题名称
func (g Groups) Labels() []string {
	labels := make([]string, len(g))
	for i, grp := range g {
		labels[i] = grp.Label
	}
	return labels
}
