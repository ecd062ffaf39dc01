package requirement

import (
	"regexp"
	"strings"
)

// UnknownReqID 引用编号中不含数字时使用的需求ID
const UnknownReqID = "UNKNOWN"

// digitRun 匹配连续的十进制数字
var digitRun = regexp.MustCompile(`[0-9]+`)

// Record 从文档中解析出的单个需求块
// 提交之后只读，不再修改
type Record struct {
	ReferenceCode   string   `json:"reference_code"`   // 原始引用编号，例如 REQ-102
	ReqID           string   `json:"req_id"`           // 引用编号中最后一段数字
	Title           string   `json:"title"`            // 需求标题
	ReqName         string   `json:"req_name"`         // "[引用编号] 标题"
	RequirementText string   `json:"requirement_text"` // 需求正文
	Rationale       string   `json:"rationale"`        // 需求理由
	FitCriteria     []string `json:"fit_criteria"`     // 验收标准，保持文档顺序，不去重
}

// Topic 返回需求主题，标题为空时退回到需求名称
func (r Record) Topic() string {
	if r.Title != "" {
		return r.Title
	}
	return r.ReqName
}

// DigitsFromRef 从引用编号中提取最后一段连续数字
// 没有数字时返回 UnknownReqID
func DigitsFromRef(ref string) string {
	runs := digitRun.FindAllString(ref, -1)
	if len(runs) == 0 {
		return UnknownReqID
	}
	return runs[len(runs)-1]
}

// buildName 生成需求名称
func buildName(ref, title string) string {
	return strings.TrimSpace("[" + ref + "] " + title)
}
