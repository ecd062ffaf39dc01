package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat 不支持的文档格式
var ErrUnsupportedFormat = errors.New("unsupported document type")

// Parser 文档解析器接口
// 负责将不同格式的文档解析为按文档顺序排列的段落文本
type Parser interface {
	// Parse 解析文档文件
	Parse(filePath string) ([]string, error)

	// ParseReader 从Reader解析文档
	// filename用于确定文档类型
	ParseReader(r io.Reader, filename string) ([]string, error)
}

// ContentType 表示文档的内容类型
type ContentType string

const (
	// PDF 文档类型
	PDF ContentType = "pdf"
	// Markdown 文档类型
	Markdown ContentType = "markdown"
	// PlainText 纯文本类型
	PlainText ContentType = "plaintext"
	// Word Word文档类型(.docx)
	Word ContentType = "docx"
	// Unknown 未知类型
	Unknown ContentType = "unknown"
)

// ParserFactory 解析器工厂函数，根据文件类型创建对应的解析器
func ParserFactory(filePath string) (Parser, error) {
	switch DetectContentType(filePath) {
	case PDF:
		return NewPDFParser(), nil
	case Markdown:
		return NewMarkdownParser(), nil
	case PlainText:
		return NewPlainTextParser(), nil
	case Word:
		return NewDocxParser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filePath))
	}
}

// DetectContentType 根据文件扩展名检测内容类型
func DetectContentType(filePath string) ContentType {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".pdf":
		return PDF
	case ".md", ".markdown":
		return Markdown
	case ".txt":
		return PlainText
	case ".docx":
		return Word
	default:
		return Unknown
	}
}

// IsSupported 判断文件是否为支持的文档类型
func IsSupported(filename string) bool {
	return DetectContentType(filename) != Unknown
}

// parseFile 打开文件并交给ParseReader处理
func parseFile(p Parser, filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer file.Close()

	return p.ParseReader(file, filePath)
}
