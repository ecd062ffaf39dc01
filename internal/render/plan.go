package render

import (
	"github.com/fyerfyer/gherkin-gen/internal/requirement"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
)

// Options 生成选项
type Options struct {
	Mode                     scenario.Mode `json:"mode"`
	OutlineOptimization      bool          `json:"outline_optimization"`
	PreserveBulletFormatting bool          `json:"preserve_bullet_formatting"`
	StrictActorReferencing   bool          `json:"strict_actor_referencing"`
	Guidelines               string        `json:"guidelines,omitempty"`
}

// Normalize 修正无效的模式
func (o Options) Normalize() Options {
	o.Mode = scenario.ParseMode(string(o.Mode))
	return o
}

// RequirementPlan 单个需求的渲染计划
type RequirementPlan struct {
	Record  requirement.Record `json:"record"`
	Actor   string             `json:"actor"`
	Buckets []scenario.Bucket  `json:"buckets"`
}

// PlanAll 为所有需求计算执行者和场景桶
func PlanAll(records []requirement.Record, opts Options) []RequirementPlan {
	opts = opts.Normalize()

	plans := make([]RequirementPlan, 0, len(records))
	for _, rec := range records {
		plans = append(plans, RequirementPlan{
			Record:  rec,
			Actor:   scenario.InferActor(rec.RequirementText, opts.StrictActorReferencing),
			Buckets: scenario.Plan(rec.FitCriteria, opts.Mode),
		})
	}
	return plans
}

// scenarioTitle 场景标题，只有一个场景时不带后缀
func scenarioTitle(plan RequirementPlan, index int) string {
	if len(plan.Buckets) == 1 {
		return plan.Record.ReqName
	}
	return plan.Record.ReqName + " - " + plan.Buckets[index-1].DisplayLabel(index)
}

// criterionText 根据选项决定是否保留列表符号
func criterionText(line string, opts Options) string {
	if opts.PreserveBulletFormatting {
		return line
	}
	return scenario.StripBullets(line)
}
