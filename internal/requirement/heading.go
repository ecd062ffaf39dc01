package requirement

import (
	"regexp"
	"strings"
)

// Section 需求块内当前所处的段落
type Section int

const (
	// SectionNone 尚未进入任何段落
	SectionNone Section = iota
	// SectionRequirement 需求正文段落
	SectionRequirement
	// SectionRationale 理由段落
	SectionRationale
	// SectionFit 验收标准段落
	SectionFit
)

// String 返回段落名称，用于日志
func (s Section) String() string {
	switch s {
	case SectionRequirement:
		return "requirement"
	case SectionRationale:
		return "rationale"
	case SectionFit:
		return "fit"
	default:
		return "none"
	}
}

// headerPattern 匹配需求块头部 "[<ref>] <title>"
var headerPattern = regexp.MustCompile(`^\[([^\]]*)\]\s*(.*)$`)

// sectionLabels 段落标签（已规范化）到段落的映射
var sectionLabels = map[string]Section{
	"requirement":         SectionRequirement,
	"rationale":           SectionRationale,
	"rational":            SectionRationale,
	"fit criteria":        SectionFit,
	"fitcriterion":        SectionFit,
	"fit-criteria":        SectionFit,
	"fit":                 SectionFit,
	"acceptance criteria": SectionFit,
	"acceptance tests":    SectionFit,
}

// ParseHeader 识别需求块头部行
// 返回引用编号和标题，不是头部时ok为false
func ParseHeader(line string) (ref, title string, ok bool) {
	m := headerPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// ClassifyLabel 判断一行是否为段落标签
// 不是标签时返回 SectionNone
func ClassifyLabel(line string) Section {
	return sectionLabels[normalizeLabel(line)]
}

// normalizeLabel 小写、去空白并去掉末尾冒号
func normalizeLabel(line string) string {
	s := strings.ToLower(strings.TrimSpace(line))
	s = strings.TrimSuffix(s, ":")
	return strings.TrimSpace(s)
}
