package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// reportColumns 汇总表的列标题和宽度（毫米）
var reportColumns = []struct {
	Title string
	Width float64
}{
	{"Topic", 45},
	{"Req ID", 20},
	{"Name", 65},
	{"# FIT Criteria", 25},
	{"# Gherkin Scenarios", 35},
}

// ReportInput 生成PDF报告所需的数据
type ReportInput struct {
	Title      string   // 报告标题
	Paragraphs []string // 源文档段落，按原样输出在报告开头
	Summary    Summary
	Rules      []string
}

// Report 生成PDF格式的汇总报告
func Report(in ReportInput) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(in.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(in.Title), "", 1, "L", false, 0, "")

	// 原样输出源文档段落
	pdf.SetFont("Arial", "", 10)
	for _, p := range in.Paragraphs {
		if p == "" {
			pdf.Ln(3)
			continue
		}
		pdf.MultiCell(0, 5, tr(p), "", "L", false)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Summary Table", "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 9)
	for _, col := range reportColumns {
		pdf.CellFormat(col.Width, 7, col.Title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range in.Summary.Requirements {
		cells := []string{
			row.Topic,
			row.ReqID,
			row.ReqName,
			fmt.Sprint(row.FitCount),
			fmt.Sprint(row.ScenarioCount),
		}
		for i, col := range reportColumns {
			pdf.CellFormat(col.Width, 7, truncate(pdf, tr(cells[i]), col.Width-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := in.Summary.Totals
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(reportColumns[0].Width+reportColumns[1].Width+reportColumns[2].Width, 7,
		fmt.Sprintf("Total (%d requirements)", totals.TotalRequirements), "1", 0, "L", false, 0, "")
	pdf.CellFormat(reportColumns[3].Width, 7, fmt.Sprint(totals.TotalFitCriteria), "1", 0, "L", false, 0, "")
	pdf.CellFormat(reportColumns[4].Width, 7, fmt.Sprint(totals.TotalScenarios), "1", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, "Generation Rules", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, rule := range in.Rules {
		pdf.MultiCell(0, 5, tr("- "+rule), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf report: %w", err)
	}
	return buf.Bytes(), nil
}

// truncate 截断超出单元格宽度的文本
// s 已经过单字节编码转换，按字节截断
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
