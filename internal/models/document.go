package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 需求文档状态类型
type DocumentStatus string

const (
	// DocStatusUploaded 文档已上传，可以生成
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusDeleted 文档已删除
	DocStatusDeleted DocumentStatus = "deleted"
)

// Document 上传的需求文档元数据
// 解析出的需求记录不落库，每次生成时从存储中重新读取原文件
type Document struct {
	ID          string         `gorm:"primaryKey"`     // 文档ID，与存储中的文件ID一致
	FileName    string         `gorm:"not null"`       // 原始文件名
	FileType    string         `gorm:"not null"`       // 文件类型：docx, md, txt, pdf
	StoragePath string         `gorm:"not null"`       // 存储内部路径
	FileSize    int64          `gorm:"not null"`       // 文件大小（字节）
	Status      DocumentStatus `gorm:"not null;index"` // 文档状态
	UploadedAt  time.Time      `gorm:"not null;index"` // 上传时间
	UpdatedAt   time.Time      `gorm:"not null"`       // 更新时间
	Metadata    datatypes.JSON `gorm:"type:json"`      // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *Document) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}
