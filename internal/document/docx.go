package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// wordNamespace WordprocessingML 命名空间
const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// docxBody Word文档正文在压缩包中的位置
const docxBody = "word/document.xml"

// DocxParser Word(.docx)文档解析器
// 每个 <w:p> 段落输出为一行，保留空段落
type DocxParser struct{}

// NewDocxParser 创建一个新的docx解析器
func NewDocxParser() Parser {
	return &DocxParser{}
}

// Parse 解析docx文件
func (p *DocxParser) Parse(filePath string) ([]string, error) {
	return parseFile(p, filePath)
}

// ParseReader 从Reader解析docx内容
func (p *DocxParser) ParseReader(r io.Reader, filename string) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read docx content: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid docx archive: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", docxBody, err)
		}
		defer rc.Close()
		return paragraphsFromXML(rc)
	}

	return nil, errors.New("docx archive has no word/document.xml")
}

// paragraphsFromXML 按顺序读取正文段落
func paragraphsFromXML(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "p":
				current.Reset()
			case "t":
				inText = true
			case "tab":
				current.WriteString("\t")
			case "br", "cr":
				current.WriteString(" ")
			}
		case xml.EndElement:
			if t.Name.Space != wordNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				paragraphs = append(paragraphs, strings.TrimSpace(current.String()))
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}
