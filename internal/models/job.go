package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus 生成任务状态
type JobStatus string

const (
	// JobStatusPending 已创建，等待执行
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning 执行中
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted 执行完成，产物可下载
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed 执行失败
	JobStatusFailed JobStatus = "failed"
)

// IsFinal 是否为终态
func (s JobStatus) IsFinal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// GenerationJob 一次场景生成任务
// Options 和 Summary 以JSON保存，产物文件ID指向输出存储
type GenerationJob struct {
	ID            string         `gorm:"primaryKey"`     // 任务ID
	DocumentID    string         `gorm:"not null;index"` // 需求文档ID
	Status        JobStatus      `gorm:"not null;index"` // 任务状态
	Options       datatypes.JSON `gorm:"type:json"`      // 生成选项
	Summary       datatypes.JSON `gorm:"type:json"`      // 生成汇总
	FeatureFileID string         `gorm:"size:64"`        // Gherkin特性文件
	ScriptFileID  string         `gorm:"size:64"`        // 端到端测试脚本
	ReportFileID  string         `gorm:"size:64"`        // PDF汇总报告
	TaskID        string         `gorm:"size:64;index"`  // 异步执行时的队列任务ID
	Error         string         `gorm:"type:text"`      // 错误信息
	CreatedAt     time.Time      `gorm:"not null;index"` // 创建时间
	UpdatedAt     time.Time      `gorm:"not null"`       // 更新时间
	CompletedAt   *time.Time     // 完成时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (j *GenerationJob) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (j *GenerationJob) BeforeUpdate(tx *gorm.DB) (err error) {
	j.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (GenerationJob) TableName() string {
	return "generation_jobs"
}
