package trace

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fyerfyer/gherkin-gen/internal/requirement"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
)

// DefaultTopN 默认保留的需求数量
const DefaultTopN = 20

// ParseTopN 解析 topN 参数
// 无法解析时返回默认值；非正数表示不截断，原样返回
func ParseTopN(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return DefaultTopN
	}
	return n
}

// Build 根据场景划分结果构建可追溯性图
// 需求按验收标准数量降序排列，topN<=0 时保留全部
func Build(records []requirement.Record, mode scenario.Mode, topN int) Graph {
	g := newGraph()

	for _, rec := range rankRecords(records, topN) {
		reqNode := "REQ:" + rec.ReqID
		g.addNode(reqNode, KindRequirement, rec.Topic())

		k := scenario.EffectiveCount(rec.FitCriteria, mode)
		if k == 1 {
			scNode := fmt.Sprintf("SC:%s:1", rec.ReqID)
			g.addNode(scNode, KindScenario, "Scenario 1")
			g.addLink(reqNode, scNode, len(rec.FitCriteria))
			linkThemes(g, scNode, rec.FitCriteria)
			continue
		}

		for i, bucket := range scenario.Partition(rec.FitCriteria, k) {
			index := i + 1
			scNode := fmt.Sprintf("SC:%s:%d", rec.ReqID, index)
			g.addNode(scNode, KindScenario, fmt.Sprintf("Scenario %d: %s", index, bucket.DisplayLabel(index)))
			g.addLink(reqNode, scNode, len(bucket.Criteria))
			linkThemes(g, scNode, bucket.Criteria)
		}
	}

	return *g
}

// linkThemes 将场景连接到其验收标准的主题
func linkThemes(g *Graph, scNode string, criteria []string) {
	for _, grp := range scenario.GroupByTheme(criteria) {
		thNode := "TH:" + grp.Label
		g.addNode(thNode, KindTheme, grp.Label)
		g.addLink(scNode, thNode, len(grp.Lines))
	}
}

// rankRecords 按验收标准数量降序排列并截取前topN个
func rankRecords(records []requirement.Record, topN int) []requirement.Record {
	ranked := make([]requirement.Record, len(records))
	copy(ranked, records)
	sort.SliceStable(ranked, func(i, j int) bool {
		return len(ranked[i].FitCriteria) > len(ranked[j].FitCriteria)
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
