package document

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// showTextOp 匹配内容流中的 "(text) Tj" 或 "(text) '" 文本输出操作
	showTextOp = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*(?:Tj|')`)
	// showArrayOp 匹配 "[(a) -20 (b)] TJ" 文本数组操作
	showArrayOp = regexp.MustCompile(`\[((?:\\.|[^\]\\])*)\]\s*TJ`)
	// arrayString 文本数组中的字符串元素
	arrayString = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
)

// PDFParser PDF文档解析器
// 使用pdfcpu导出页面内容流，再从文本输出操作中恢复段落
type PDFParser struct{}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	return &PDFParser{}
}

// Parse 解析PDF文件并提取文本段落
func (p *PDFParser) Parse(filePath string) ([]string, error) {
	// 创建临时目录用于存放提取的内容
	tmpDir, err := os.MkdirTemp("", "pdfcpu_extract_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContentFile(filePath, tmpDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract content from PDF: %w", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted content dir: %w", err)
	}

	// 按文件名排序（页码顺序）
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var lines []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, e.Name()))
		if err != nil {
			continue
		}
		lines = append(lines, textFromContentStream(string(data))...)
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no text content found in PDF")
	}
	return lines, nil
}

// ParseReader 将Reader内容写入临时文件后解析
func (p *PDFParser) ParseReader(r io.Reader, filename string) ([]string, error) {
	tmpFile, err := os.CreateTemp("", "gherkin-upload-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to buffer PDF content: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to buffer PDF content: %w", err)
	}

	return p.Parse(tmpFile.Name())
}

// textFromContentStream 从内容流中提取每条文本输出
func textFromContentStream(content string) []string {
	var lines []string
	for _, row := range strings.Split(content, "\n") {
		var parts []string
		for _, m := range showTextOp.FindAllStringSubmatch(row, -1) {
			parts = append(parts, unescapePDFString(m[1]))
		}
		for _, m := range showArrayOp.FindAllStringSubmatch(row, -1) {
			var sb strings.Builder
			for _, s := range arrayString.FindAllStringSubmatch(m[1], -1) {
				sb.WriteString(unescapePDFString(s[1]))
			}
			parts = append(parts, sb.String())
		}
		if len(parts) > 0 {
			lines = append(lines, strings.TrimSpace(strings.Join(parts, "")))
		}
	}
	return lines
}

// unescapePDFString 处理PDF字符串中的转义字符
func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, "\n", `\r`, "", `\t`, "\t")
	return replacer.Replace(s)
}
