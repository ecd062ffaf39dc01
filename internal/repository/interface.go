package repository

import "github.com/fyerfyer/gherkin-gen/internal/models"

// DocumentRepository 需求文档仓储接口
// 负责上传文档元数据的存储和检索
type DocumentRepository interface {
	// Create 创建文档记录
	Create(doc *models.Document) error

	// GetByID 根据ID获取文档
	GetByID(id string) (*models.Document, error)

	// List 按上传时间倒序分页列出文档
	List(offset, limit int) ([]*models.Document, int64, error)

	// Delete 删除文档及其生成任务
	Delete(id string) error
}

// JobRepository 生成任务仓储接口
type JobRepository interface {
	// Create 创建任务记录
	Create(job *models.GenerationJob) error

	// SetTaskID 记录异步执行时的队列任务ID
	SetTaskID(id, taskID string) error

	// Complete 标记任务完成并写入产物和汇总，只更新相关列
	Complete(job *models.GenerationJob) error

	// GetByID 根据ID获取任务
	GetByID(id string) (*models.GenerationJob, error)

	// UpdateStatus 更新任务状态，终态时记录完成时间
	UpdateStatus(id string, status models.JobStatus, errorMsg string) error

	// ListByDocument 列出文档的所有任务，新任务在前
	ListByDocument(documentID string) ([]*models.GenerationJob, error)
}
