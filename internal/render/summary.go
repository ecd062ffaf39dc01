package render

// RequirementSummary 单个需求的统计信息
type RequirementSummary struct {
	ReqID         string `json:"req_id"`
	ReqName       string `json:"req_name"`
	Topic         string `json:"topic"`
	FitCount      int    `json:"fit_count"`
	ScenarioCount int    `json:"scenario_count"`
}

// Totals 汇总统计
type Totals struct {
	TotalRequirements int `json:"total_requirements"`
	TotalFitCriteria  int `json:"total_fit_criteria"`
	TotalScenarios    int `json:"total_scenarios"`
}

// Summary 生成结果的统计报告
type Summary struct {
	Requirements []RequirementSummary `json:"requirements"`
	Totals       Totals               `json:"totals"`
}

// styleDirectives 固定的两条风格约定
var styleDirectives = []string{
	"Write steps in the present tense using Given/When/Then.",
	"Keep one observable outcome per Then/And step.",
}

// Summarize 统计每个需求的验收标准和场景数量
func Summarize(plans []RequirementPlan) Summary {
	s := Summary{Requirements: make([]RequirementSummary, 0, len(plans))}

	for _, plan := range plans {
		rec := plan.Record
		row := RequirementSummary{
			ReqID:         rec.ReqID,
			ReqName:       rec.ReqName,
			Topic:         rec.Topic(),
			FitCount:      len(rec.FitCriteria),
			ScenarioCount: len(plan.Buckets),
		}
		s.Requirements = append(s.Requirements, row)

		s.Totals.TotalRequirements++
		s.Totals.TotalFitCriteria += row.FitCount
		s.Totals.TotalScenarios += row.ScenarioCount
	}

	return s
}

// RulesManifest 生成规则清单：模式说明、各开关状态以及固定风格约定
func RulesManifest(opts Options) []string {
	opts = opts.Normalize()

	rules := []string{
		"Mode: " + opts.Mode.Description(),
		"Outline optimization: " + onOff(opts.OutlineOptimization),
		"Preserve bullet formatting: " + onOff(opts.PreserveBulletFormatting),
		"Strict actor referencing: " + onOff(opts.StrictActorReferencing),
	}
	return append(rules, styleDirectives...)
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
