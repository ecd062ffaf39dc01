package scenario

import (
	"fmt"
)

// Bucket 分配给一个场景的验收标准
type Bucket struct {
	Label    string   `json:"label"`    // 主题名称，或 "group N"
	Themed   bool     `json:"themed"`   // 标签是否来自主题
	Criteria []string `json:"criteria"` // 该场景覆盖的验收标准
}

// DisplayLabel 场景标题中使用的标签
// 主题分桶使用主题名，轮询分桶使用 "Group N"（从1开始）
func (b Bucket) DisplayLabel(index int) string {
	if b.Themed {
		return b.Label
	}
	return fmt.Sprintf("Group %d", index)
}

// Partition 将验收标准分配到k个场景桶中
// k必须大于0，否则视为调用方的编程错误
func Partition(criteria []string, k int) []Bucket {
	if k <= 0 {
		panic(fmt.Sprintf("scenario: partition into %d buckets", k))
	}

	if k == 1 {
		return []Bucket{{Criteria: copyLines(criteria)}}
	}

	sorted := GroupByTheme(criteria).SortedBySize()
	if len(sorted) < k {
		return roundRobin(criteria, k)
	}

	buckets := make([]Bucket, k)
	seeded := make(map[string]bool, k)
	for i := 0; i < k; i++ {
		buckets[i] = Bucket{
			Label:    sorted[i].Label,
			Themed:   true,
			Criteria: copyLines(sorted[i].Lines),
		}
		seeded[sorted[i].Label] = true
	}

	// 较小分组中剩余的标准按原始顺序轮询分配
	next := 0
	for _, line := range criteria {
		label, ok := ThemeOf(line)
		if !ok {
			label = MiscTheme
		}
		if seeded[label] {
			continue
		}
		buckets[next%k].Criteria = append(buckets[next%k].Criteria, line)
		next++
	}

	return buckets
}

// Plan 按生成模式计算场景桶，场景数量至少为1
func Plan(criteria []string, mode Mode) []Bucket {
	return Partition(criteria, EffectiveCount(criteria, mode))
}

// roundRobin 忽略主题，第i条标准进入第 i mod k 个桶
func roundRobin(criteria []string, k int) []Bucket {
	buckets := make([]Bucket, k)
	for i := range buckets {
		buckets[i] = Bucket{
			Label:    fmt.Sprintf("group %d", i+1),
			Criteria: []string{},
		}
	}
	for i, line := range criteria {
		buckets[i%k].Criteria = append(buckets[i%k].Criteria, line)
	}
	return buckets
}

// copyLines 复制切片，避免持有调用方的数据
func copyLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
