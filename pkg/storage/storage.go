package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrNotFound 指定ID的文件不存在
var ErrNotFound = errors.New("file not found")

// FileInfo 文件元数据结构
type FileInfo struct {
	ID       string // 文件唯一标识符
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // 文件MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 文件存储接口
// 上传的需求文档和生成的产物都通过它读写，可以有本地文件系统、MinIO等实现
type Storage interface {
	// Save 保存文件并返回文件信息
	Save(reader io.Reader, filename string) (FileInfo, error)

	// Get 获取文件内容，调用方负责关闭
	Get(id string) (io.ReadCloser, error)

	// Delete 删除文件
	Delete(id string) error

	// Exists 检查文件是否存在
	Exists(id string) (bool, error)
}

// objectName 文件ID加原始扩展名组成存储名
func objectName(id, filename string) string {
	return id + strings.ToLower(filepath.Ext(filename))
}

// idFromName 从存储名中还原文件ID
func idFromName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// getMimeType 根据文件扩展名判断MIME类型
func getMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".feature":
		return "text/x-gherkin"
	case ".ts":
		return "application/typescript"
	default:
		return "application/octet-stream"
	}
}
