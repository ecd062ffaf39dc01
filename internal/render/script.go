package render

import (
	"fmt"
	"strings"
)

// Script 渲染与特性文件对应的端到端测试脚本（Playwright 风格）
func Script(plans []RequirementPlan, opts Options) string {
	opts = opts.Normalize()

	var b strings.Builder
	b.WriteString("import { test, expect } from '@playwright/test';\n")
	fmt.Fprintf(&b, "\n// mode: %s\n", opts.Mode)
	for _, line := range guidelineLines(opts.Guidelines) {
		fmt.Fprintf(&b, "// guideline: %s\n", line)
	}

	for _, plan := range plans {
		fmt.Fprintf(&b, "\ntest.describe('%s', () => {\n", quoteJS(plan.Record.ReqName))
		for i, bucket := range plan.Buckets {
			index := i + 1
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "  test('%s', async ({ page }) => {\n", quoteJS(scenarioTitle(plan, index)))
			fmt.Fprintf(&b, "    // Given %s has access to \"%s\"\n", plan.Actor, plan.Record.Topic())
			b.WriteString("    await page.goto('/');\n")
			if len(bucket.Criteria) == 0 {
				fmt.Fprintf(&b, "    // expect: requirement \"%s\" is satisfied\n", plan.Record.ReqName)
			}
			for _, c := range bucket.Criteria {
				fmt.Fprintf(&b, "    // expect: %s\n", criterionText(c, opts))
			}
			b.WriteString("    await expect(page).toHaveURL(/.*/);\n")
			b.WriteString("  });\n")
		}
		b.WriteString("});\n")
	}
	return b.String()
}

// quoteJS 转义单引号字符串
func quoteJS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
