package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/gherkin-gen/internal/database"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"gorm.io/gorm"
)

// jobRepository 生成任务仓储实现
type jobRepository struct {
	db *gorm.DB
}

// NewJobRepository 使用全局数据库连接创建任务仓储
func NewJobRepository() JobRepository {
	return &jobRepository{db: database.MustDB()}
}

// NewJobRepositoryWithDB 使用指定的数据库连接创建任务仓储
func NewJobRepositoryWithDB(db *gorm.DB) JobRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &jobRepository{db: db}
}

// Create 创建任务记录
func (r *jobRepository) Create(job *models.GenerationJob) error {
	if job.ID == "" {
		return errors.New("job ID cannot be empty")
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	return r.db.Create(job).Error
}

// SetTaskID 只更新任务的队列任务ID
func (r *jobRepository) SetTaskID(id, taskID string) error {
	return r.updateColumns(id, map[string]interface{}{
		"task_id":    taskID,
		"updated_at": time.Now(),
	})
}

// Complete 写入完成状态、产物文件ID和汇总，不触碰其他列
func (r *jobRepository) Complete(job *models.GenerationJob) error {
	if job.ID == "" {
		return errors.New("job ID cannot be empty")
	}
	now := time.Now()
	job.CompletedAt = &now
	job.Status = models.JobStatusCompleted
	job.Error = ""
	job.UpdatedAt = now

	return r.updateColumns(job.ID, map[string]interface{}{
		"status":          job.Status,
		"summary":         job.Summary,
		"feature_file_id": job.FeatureFileID,
		"script_file_id":  job.ScriptFileID,
		"report_file_id":  job.ReportFileID,
		"error":           "",
		"completed_at":    job.CompletedAt,
		"updated_at":      now,
	})
}

// GetByID 根据ID获取任务
func (r *jobRepository) GetByID(id string) (*models.GenerationJob, error) {
	var job models.GenerationJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, err
	}
	return &job, nil
}

// UpdateStatus 更新任务状态
func (r *jobRepository) UpdateStatus(id string, status models.JobStatus, errorMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	if status.IsFinal() {
		updates["completed_at"] = time.Now()
	}

	return r.updateColumns(id, updates)
}

// ListByDocument 列出文档的所有任务
func (r *jobRepository) ListByDocument(documentID string) ([]*models.GenerationJob, error) {
	var jobs []*models.GenerationJob
	err := r.db.Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&jobs).Error
	return jobs, err
}

// updateColumns 按ID更新指定列，记录不存在时返回ErrJobNotFound
func (r *jobRepository) updateColumns(id string, updates map[string]interface{}) error {
	result := r.db.Model(&models.GenerationJob{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	return nil
}
