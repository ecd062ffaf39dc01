package scenario

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainCriteria 生成n条没有主题的验收标准
func plainCriteria(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("criterion number %d", i)
	}
	return lines
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAtomized, ParseMode("atomized"))
	assert.Equal(t, ModeUltraOptimized, ParseMode(" Ultra-Optimized "))
	assert.Equal(t, ModeOptimized, ParseMode("optimized"))
	assert.Equal(t, ModeOptimized, ParseMode("bogus"))
	assert.Equal(t, ModeOptimized, ParseMode(""))
}

func TestScenarioCount_OptimizedSingleTheme(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 3: 1, 4: 2, 10: 2, 11: 3, 40: 3}

	for n, expected := range tests {
		assert.Equal(t, expected, ScenarioCount(plainCriteria(n), ModeOptimized), "n=%d", n)
	}
}

func TestScenarioCount_OptimizedMultiTheme(t *testing.T) {
	assert.Equal(t, 3, ScenarioCount([]string{"a: x", "b: y"}, ModeOptimized))
	assert.Equal(t, 3, ScenarioCount([]string{"a: x", "b: y", "a: z", "a: w", "b: v"}, ModeOptimized))
	// 单一主题不算多主题
	assert.Equal(t, 2, ScenarioCount([]string{"a: 1", "a: 2", "a: 3", "a: 4"}, ModeOptimized))
}

func TestScenarioCount_OtherModes(t *testing.T) {
	for n := 1; n <= 12; n++ {
		assert.Equal(t, n, ScenarioCount(plainCriteria(n), ModeAtomized))
		assert.Equal(t, 1, ScenarioCount(plainCriteria(n), ModeUltraOptimized))
	}

	assert.Equal(t, 0, ScenarioCount(nil, ModeAtomized))
	assert.Equal(t, 1, EffectiveCount(nil, ModeAtomized))
	assert.Equal(t, 1, ScenarioCount(nil, ModeUltraOptimized))
	assert.Equal(t, 1, ScenarioCount(plainCriteria(2), Mode("unknown")))
}

func TestPartition_Single(t *testing.T) {
	criteria := plainCriteria(5)

	buckets := Partition(criteria, 1)
	require.Len(t, buckets, 1)
	assert.Equal(t, criteria, buckets[0].Criteria)

	// 返回的是副本
	buckets[0].Criteria[0] = "changed"
	assert.Equal(t, "criterion number 0", criteria[0])
}

func TestPartition_RoundRobinInvariant(t *testing.T) {
	for n := 0; n <= 13; n++ {
		for k := 2; k <= 5; k++ {
			criteria := plainCriteria(n)
			buckets := Partition(criteria, k)
			require.Len(t, buckets, k)

			index := make(map[string]int, n)
			for i, c := range criteria {
				index[c] = i
			}

			var all []string
			for i, b := range buckets {
				size := len(b.Criteria)
				assert.True(t, size == n/k || size == (n+k-1)/k, "n=%d k=%d size=%d", n, k, size)
				assert.Equal(t, fmt.Sprintf("group %d", i+1), b.Label)
				assert.False(t, b.Themed)
				all = append(all, b.Criteria...)
			}

			sort.Slice(all, func(i, j int) bool { return index[all[i]] < index[all[j]] })
			if n == 0 {
				assert.Empty(t, all)
			} else {
				assert.Equal(t, criteria, all)
			}
		}
	}
}

func TestPartition_ThemedBuckets(t *testing.T) {
	criteria := []string{
		"small: s1",
		"big: b1",
		"mid: m1",
		"big: b2",
		"tiny: t1",
		"mid: m2",
		"big: b3",
		"other: o1",
	}

	buckets := Partition(criteria, 3)
	require.Len(t, buckets, 3)

	assert.Equal(t, "big", buckets[0].Label)
	assert.Equal(t, "mid", buckets[1].Label)
	// small 与 tiny、other 同样大小，small 先出现
	assert.Equal(t, "small", buckets[2].Label)
	for _, b := range buckets {
		assert.True(t, b.Themed)
	}

	// 剩余的 tiny、other 按原始顺序轮询分配
	assert.Equal(t, []string{"big: b1", "big: b2", "big: b3", "tiny: t1"}, buckets[0].Criteria)
	assert.Equal(t, []string{"mid: m1", "mid: m2", "other: o1"}, buckets[1].Criteria)
	assert.Equal(t, []string{"small: s1"}, buckets[2].Criteria)
}

func TestPartition_FewerThemesThanBuckets(t *testing.T) {
	criteria := []string{
		"Validation: email required",
		"Validation: password required",
		"Validation: lockout",
		"Audit: login recorded",
		"Audit: logout recorded",
	}

	k := ScenarioCount(criteria, ModeOptimized)
	require.Equal(t, 3, k)

	buckets := Partition(criteria, k)
	require.Len(t, buckets, 3)
	assert.Equal(t, []string{"Validation: email required", "Audit: login recorded"}, buckets[0].Criteria)
	assert.Equal(t, []string{"Validation: password required", "Audit: logout recorded"}, buckets[1].Criteria)
	assert.Equal(t, []string{"Validation: lockout"}, buckets[2].Criteria)
	assert.Equal(t, "Group 2", buckets[1].DisplayLabel(2))
}

func TestPartition_InvalidCountPanics(t *testing.T) {
	assert.Panics(t, func() { Partition(plainCriteria(2), 0) })
}

func TestPlan(t *testing.T) {
	buckets := Plan(nil, ModeAtomized)
	require.Len(t, buckets, 1)
	assert.Empty(t, buckets[0].Criteria)

	buckets = Plan(plainCriteria(4), ModeAtomized)
	require.Len(t, buckets, 4)
	for i, b := range buckets {
		assert.Equal(t, []string{fmt.Sprintf("criterion number %d", i)}, b.Criteria)
	}
}
