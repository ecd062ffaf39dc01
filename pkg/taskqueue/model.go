package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskGenerateScenarios 为一个需求文档生成场景产物
	TaskGenerateScenarios TaskType = "generate_scenarios"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// IsFinal 是否为终态
func (s TaskStatus) IsFinal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task 任务基础结构，以JSON保存在Redis中
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符，同时作为asynq任务ID
	Type        TaskType        `json:"type"`         // 任务类型
	DocumentID  string          `json:"document_id"`  // 关联的文档ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷
	Result      json.RawMessage `json:"result"`       // 任务结果
	Error       string          `json:"error"`        // 错误信息
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// GeneratePayload 场景生成任务载荷
// Options 为生成选项的JSON，由服务层解释
type GeneratePayload struct {
	JobID      string          `json:"job_id"`
	DocumentID string          `json:"document_id"`
	Options    json.RawMessage `json:"options"`
}

// GenerateResult 场景生成任务结果
type GenerateResult struct {
	JobID         string `json:"job_id"`
	FeatureFileID string `json:"feature_file_id"`
	ScriptFileID  string `json:"script_file_id"`
	ReportFileID  string `json:"report_file_id"`
	Requirements  int    `json:"requirements"`
	Scenarios     int    `json:"scenarios"`
}
