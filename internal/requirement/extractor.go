package requirement

import (
	"strings"
)

// textSeparator 多行正文合并时使用的分隔符
const textSeparator = " "

// scanState 提取过程中的状态机
// current 为当前打开的需求块，section 为当前段落
type scanState struct {
	records   []Record
	current   *Record
	section   Section
	reqText   []string
	rationale []string
}

// Extract 从按文档顺序排列的文本行中提取需求记录
// 不会因为格式问题失败：无法识别的行直接丢弃
func Extract(lines []string) []Record {
	st := &scanState{records: make([]Record, 0)}

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if ref, title, ok := ParseHeader(line); ok {
			st.open(ref, title)
			continue
		}

		if sec := ClassifyLabel(line); sec != SectionNone {
			st.section = sec
			continue
		}

		st.consume(line)
	}

	st.commit()
	return st.records
}

// ExtractText 按换行拆分整段文本后提取需求记录
func ExtractText(text string) []Record {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Extract(strings.Split(text, "\n"))
}

// open 提交当前需求块并打开新的需求块
func (st *scanState) open(ref, title string) {
	st.commit()
	st.current = &Record{
		ReferenceCode: ref,
		Title:         title,
		FitCriteria:   []string{},
	}
	st.section = SectionNone
}

// consume 将内容行追加到当前段落
func (st *scanState) consume(line string) {
	if st.current == nil {
		return
	}

	switch st.section {
	case SectionRequirement:
		st.reqText = append(st.reqText, line)
	case SectionRationale:
		st.rationale = append(st.rationale, line)
	case SectionFit:
		st.current.FitCriteria = append(st.current.FitCriteria, line)
	}
}

// commit 封存当前需求块
func (st *scanState) commit() {
	if st.current == nil {
		return
	}

	rec := *st.current
	rec.ReqID = DigitsFromRef(rec.ReferenceCode)
	rec.ReqName = buildName(rec.ReferenceCode, rec.Title)
	rec.RequirementText = strings.Join(st.reqText, textSeparator)
	rec.Rationale = strings.Join(st.rationale, textSeparator)
	if rec.FitCriteria == nil {
		rec.FitCriteria = []string{}
	}

	st.records = append(st.records, rec)
	st.current = nil
	st.reqText = nil
	st.rationale = nil
	st.section = SectionNone
}
