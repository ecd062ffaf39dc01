package render

import (
	"fmt"
	"strings"
)

// Gherkin 渲染 Gherkin 格式的特性文件
func Gherkin(plans []RequirementPlan, opts Options) string {
	opts = opts.Normalize()

	var b strings.Builder
	fmt.Fprintf(&b, "# language: en\n# mode: %s\n", opts.Mode)
	for _, line := range guidelineLines(opts.Guidelines) {
		fmt.Fprintf(&b, "# guideline: %s\n", line)
	}

	for _, plan := range plans {
		b.WriteString("\n")
		writeFeature(&b, plan, opts)
	}
	return b.String()
}

// writeFeature 渲染单个需求
func writeFeature(b *strings.Builder, plan RequirementPlan, opts Options) {
	rec := plan.Record
	fmt.Fprintf(b, "@REQ-%s\nFeature: %s\n", rec.ReqID, rec.ReqName)
	if rec.RequirementText != "" {
		fmt.Fprintf(b, "  %s\n", rec.RequirementText)
	}
	if rec.Rationale != "" {
		fmt.Fprintf(b, "  Rationale: %s\n", rec.Rationale)
	}

	for i, bucket := range plan.Buckets {
		index := i + 1
		title := scenarioTitle(plan, index)
		criteria := make([]string, len(bucket.Criteria))
		for j, c := range bucket.Criteria {
			criteria[j] = criterionText(c, opts)
		}

		b.WriteString("\n")
		if opts.OutlineOptimization && len(criteria) >= 2 {
			writeOutline(b, plan, title, criteria)
			continue
		}

		fmt.Fprintf(b, "  Scenario: %s\n", title)
		writeContext(b, plan)
		if len(criteria) == 0 {
			fmt.Fprintf(b, "    Then the requirement \"%s\" is satisfied\n", rec.ReqName)
			continue
		}
		for j, c := range criteria {
			keyword := "And"
			if j == 0 {
				keyword = "Then"
			}
			fmt.Fprintf(b, "    %s %s\n", keyword, c)
		}
	}
}

// writeOutline 渲染带示例表的场景大纲
func writeOutline(b *strings.Builder, plan RequirementPlan, title string, criteria []string) {
	fmt.Fprintf(b, "  Scenario Outline: %s\n", title)
	writeContext(b, plan)
	b.WriteString("    Then <criterion>\n\n")
	b.WriteString("    Examples:\n")
	b.WriteString("      | criterion |\n")
	for _, c := range criteria {
		fmt.Fprintf(b, "      | %s |\n", strings.ReplaceAll(c, "|", `\|`))
	}
}

// writeContext 渲染 Given/When 步骤
func writeContext(b *strings.Builder, plan RequirementPlan) {
	topic := plan.Record.Topic()
	fmt.Fprintf(b, "    Given %s has access to \"%s\"\n", plan.Actor, topic)
	fmt.Fprintf(b, "    When %s exercises \"%s\"\n", plan.Actor, topic)
}

// guidelineLines 将自定义指南拆分为非空行
func guidelineLines(guidelines string) []string {
	var lines []string
	for _, line := range strings.Split(guidelines, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
