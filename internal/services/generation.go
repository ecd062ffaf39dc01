package services

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/gherkin-gen/internal/cache"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/fyerfyer/gherkin-gen/internal/render"
	"github.com/fyerfyer/gherkin-gen/internal/repository"
	"github.com/fyerfyer/gherkin-gen/internal/requirement"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
	"github.com/fyerfyer/gherkin-gen/internal/trace"
	"github.com/fyerfyer/gherkin-gen/pkg/storage"
	"github.com/fyerfyer/gherkin-gen/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ArtifactKind 生成产物类型
type ArtifactKind string

const (
	// ArtifactFeature Gherkin特性文件
	ArtifactFeature ArtifactKind = "feature"
	// ArtifactScript 端到端测试脚本
	ArtifactScript ArtifactKind = "script"
	// ArtifactReport PDF汇总报告
	ArtifactReport ArtifactKind = "report"
)

// GenerationOptions 一次生成使用的全部选项
type GenerationOptions struct {
	render.Options
	TopN int `json:"top_n"`
}

// Analysis 一个文档在一组选项下的生成结果
type Analysis struct {
	DocumentID string               `json:"document_id"`
	FileName   string               `json:"file_name"`
	Options    render.Options       `json:"options"`
	Paragraphs []string             `json:"paragraphs"`
	Records    []requirement.Record `json:"records"`
	Feature    string               `json:"feature"`
	Script     string               `json:"script"`
	Summary    render.Summary       `json:"summary"`
	Rules      []string             `json:"rules"`
}

// Artifact 可下载的产物
type Artifact struct {
	Reader      io.ReadCloser
	FileName    string
	ContentType string
}

// GenerationService 场景生成服务
// 串联文档解析、需求抽取、场景划分和渲染，并管理生成任务
type GenerationService struct {
	docs     *DocumentService
	jobs     repository.JobRepository
	outputs  storage.Storage // 生成产物存储
	cache    cache.Cache
	cacheTTL time.Duration
	queue    taskqueue.Queue
	defaults GenerationOptions
	logger   *logrus.Logger
}

// GenerationOption 生成服务配置选项
type GenerationOption func(*GenerationService)

// NewGenerationService 创建生成服务
func NewGenerationService(docs *DocumentService, jobs repository.JobRepository, outputs storage.Storage, opts ...GenerationOption) *GenerationService {
	s := &GenerationService{
		docs:    docs,
		jobs:    jobs,
		outputs: outputs,
		defaults: GenerationOptions{
			Options: render.Options{Mode: scenario.DefaultMode},
			TopN:    trace.DefaultTopN,
		},
		logger: logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if docs != nil {
		docs.beforeDelete(s.purgeDocument)
	}
	return s
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) GenerationOption {
	return func(s *GenerationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCache 设置生成结果缓存
func WithCache(c cache.Cache, ttl time.Duration) GenerationOption {
	return func(s *GenerationService) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithTaskQueue 设置任务队列，为空时异步请求退化为同步执行
func WithTaskQueue(q taskqueue.Queue) GenerationOption {
	return func(s *GenerationService) {
		s.queue = q
	}
}

// WithDefaults 设置请求未指定时使用的默认选项
func WithDefaults(defaults GenerationOptions) GenerationOption {
	return func(s *GenerationService) {
		defaults.Options = defaults.Options.Normalize()
		s.defaults = defaults
	}
}

// Defaults 返回默认选项
func (s *GenerationService) Defaults() GenerationOptions {
	return s.defaults
}

// AsyncEnabled 是否配置了任务队列
func (s *GenerationService) AsyncEnabled() bool {
	return s.queue != nil
}

// Analyze 解析文档并渲染特性文件、测试脚本和汇总，结果按文档和选项缓存
func (s *GenerationService) Analyze(ctx context.Context, documentID string, opts render.Options) (*Analysis, error) {
	opts = opts.Normalize()
	key := analysisKey(documentID, opts)
	log := s.logger.WithFields(logrus.Fields{"document_id": documentID, "mode": opts.Mode})

	if s.cache != nil {
		var cached Analysis
		found, err := cache.GetJSON(s.cache, key, &cached)
		if err != nil {
			log.WithError(err).Warn("Failed to read cached analysis")
		} else if found {
			log.Debug("Analysis served from cache")
			return &cached, nil
		}
	}

	doc, lines, err := s.docs.Lines(ctx, documentID)
	if err != nil {
		return nil, err
	}

	records := requirement.Extract(lines)
	plans := render.PlanAll(records, opts)

	a := &Analysis{
		DocumentID: documentID,
		FileName:   doc.FileName,
		Options:    opts,
		Paragraphs: lines,
		Records:    records,
		Feature:    render.Gherkin(plans, opts),
		Script:     render.Script(plans, opts),
		Summary:    render.Summarize(plans),
		Rules:      render.RulesManifest(opts),
	}

	log.WithFields(logrus.Fields{
		"requirements": a.Summary.Totals.TotalRequirements,
		"scenarios":    a.Summary.Totals.TotalScenarios,
	}).Info("Document analyzed")

	if s.cache != nil {
		if err := cache.SetJSON(s.cache, key, a, s.cacheTTL); err != nil {
			log.WithError(err).Warn("Failed to cache analysis")
		}
	}
	return a, nil
}

// Traceability 构建文档的需求-场景-主题可追溯性图
func (s *GenerationService) Traceability(ctx context.Context, documentID string, mode scenario.Mode, topN int) (*trace.Graph, error) {
	_, lines, err := s.docs.Lines(ctx, documentID)
	if err != nil {
		return nil, err
	}

	graph := trace.Build(requirement.Extract(lines), scenario.ParseMode(string(mode)), topN)
	return &graph, nil
}

// Generate 为文档创建生成任务
// async为true且配置了队列时只入队，否则同步执行并返回完成后的任务
func (s *GenerationService) Generate(ctx context.Context, documentID string, opts GenerationOptions, async bool) (*models.GenerationJob, error) {
	if _, err := s.docs.Get(ctx, documentID); err != nil {
		return nil, err
	}

	opts.Options = opts.Options.Normalize()
	rawOpts, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode options: %w", err)
	}

	job := &models.GenerationJob{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		Status:     models.JobStatusPending,
		Options:    datatypes.JSON(rawOpts),
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, fmt.Errorf("failed to create generation job: %w", err)
	}

	log := s.logger.WithFields(logrus.Fields{"job_id": job.ID, "document_id": documentID})

	if async && s.queue == nil {
		log.Warn("Task queue disabled, running generation synchronously")
	}
	if !async || s.queue == nil {
		return s.Run(ctx, job.ID)
	}

	taskID, err := s.queue.Enqueue(ctx, taskqueue.TaskGenerateScenarios, documentID, taskqueue.GeneratePayload{
		JobID:      job.ID,
		DocumentID: documentID,
		Options:    rawOpts,
	})
	if err != nil {
		s.markFailed(job.ID, err)
		return nil, fmt.Errorf("failed to enqueue generation: %w", err)
	}

	// worker可能已经完成任务，只写task_id一列
	if err := s.jobs.SetTaskID(job.ID, taskID); err != nil {
		return nil, fmt.Errorf("failed to save task id: %w", err)
	}

	log.WithField("task_id", taskID).Info("Generation job enqueued")
	return s.jobs.GetByID(job.ID)
}

// Await 等待异步任务结束，超时后返回任务的当前状态
func (s *GenerationService) Await(ctx context.Context, jobID string, timeout time.Duration) (*models.GenerationJob, error) {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsFinal() || job.TaskID == "" || s.queue == nil {
		return job, nil
	}

	if _, err := s.queue.WaitForTask(ctx, job.TaskID, timeout); err != nil && !errors.Is(err, taskqueue.ErrTaskTimeout) {
		return nil, fmt.Errorf("failed to wait for generation task: %w", err)
	}
	return s.jobs.GetByID(jobID)
}

// Run 执行生成任务：分析文档、渲染报告、保存三个产物
func (s *GenerationService) Run(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusCompleted {
		return job, nil
	}

	log := s.logger.WithFields(logrus.Fields{"job_id": job.ID, "document_id": job.DocumentID})
	if err := s.jobs.UpdateStatus(job.ID, models.JobStatusRunning, ""); err != nil {
		return nil, err
	}

	if err := s.run(ctx, job); err != nil {
		log.WithError(err).Error("Generation job failed")
		s.markFailed(job.ID, err)
		return nil, err
	}

	if err := s.jobs.Complete(job); err != nil {
		return nil, fmt.Errorf("failed to save generation job: %w", err)
	}

	log.Info("Generation job completed")
	return job, nil
}

// run 生成并保存产物，结果写回job但不落库
func (s *GenerationService) run(ctx context.Context, job *models.GenerationJob) error {
	var opts GenerationOptions
	if err := json.Unmarshal(job.Options, &opts); err != nil {
		return fmt.Errorf("invalid job options: %w", err)
	}

	a, err := s.Analyze(ctx, job.DocumentID, opts.Options)
	if err != nil {
		return err
	}

	report, err := render.Report(render.ReportInput{
		Title:      a.FileName,
		Paragraphs: a.Paragraphs,
		Summary:    a.Summary,
		Rules:      a.Rules,
	})
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(a.FileName, filepath.Ext(a.FileName))
	files := []struct {
		kind ArtifactKind
		data []byte
		dst  *string
	}{
		{ArtifactFeature, []byte(a.Feature), &job.FeatureFileID},
		{ArtifactScript, []byte(a.Script), &job.ScriptFileID},
		{ArtifactReport, report, &job.ReportFileID},
	}
	for _, f := range files {
		info, err := s.outputs.Save(bytes.NewReader(f.data), artifactName(base, f.kind))
		if err != nil {
			return fmt.Errorf("failed to save %s artifact: %w", f.kind, err)
		}
		*f.dst = info.ID
	}

	summary, err := json.Marshal(a.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	job.Summary = datatypes.JSON(summary)
	return nil
}

// ProcessTask 队列任务处理入口
func (s *GenerationService) ProcessTask(ctx context.Context, task *taskqueue.Task) (interface{}, error) {
	var payload taskqueue.GeneratePayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return nil, err
	}

	job, err := s.Run(ctx, payload.JobID)
	if err != nil {
		return nil, err
	}

	var summary render.Summary
	if err := json.Unmarshal(job.Summary, &summary); err != nil {
		s.logger.WithError(err).WithField("job_id", job.ID).Warn("Failed to decode job summary")
	}
	return taskqueue.GenerateResult{
		JobID:         job.ID,
		FeatureFileID: job.FeatureFileID,
		ScriptFileID:  job.ScriptFileID,
		ReportFileID:  job.ReportFileID,
		Requirements:  summary.Totals.TotalRequirements,
		Scenarios:     summary.Totals.TotalScenarios,
	}, nil
}

// GetJob 获取生成任务
func (s *GenerationService) GetJob(ctx context.Context, jobID string) (*models.GenerationJob, error) {
	return s.jobs.GetByID(jobID)
}

// ListJobs 列出文档的生成任务
func (s *GenerationService) ListJobs(ctx context.Context, documentID string) ([]*models.GenerationJob, error) {
	return s.jobs.ListByDocument(documentID)
}

// OpenArtifact 打开已完成任务的产物，调用方负责关闭Reader
func (s *GenerationService) OpenArtifact(ctx context.Context, jobID string, kind ArtifactKind) (*Artifact, error) {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		return nil, err
	}

	var fileID string
	switch kind {
	case ArtifactFeature:
		fileID = job.FeatureFileID
	case ArtifactScript:
		fileID = job.ScriptFileID
	case ArtifactReport:
		fileID = job.ReportFileID
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownArtifact, kind)
	}
	if job.Status != models.JobStatusCompleted || fileID == "" {
		return nil, ErrJobNotReady
	}

	base := job.DocumentID
	if doc, err := s.docs.Get(ctx, job.DocumentID); err == nil {
		base = strings.TrimSuffix(doc.FileName, filepath.Ext(doc.FileName))
	}

	r, err := s.outputs.Get(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s artifact: %w", kind, err)
	}

	name := artifactName(base, kind)
	return &Artifact{
		Reader:      r,
		FileName:    name,
		ContentType: artifactContentType(kind),
	}, nil
}

// purgeDocument 删除文档所有生成任务的产物文件和队列任务记录
// 在文档记录删除之前调用，任务记录本身由仓储级联删除
func (s *GenerationService) purgeDocument(ctx context.Context, documentID string) {
	log := s.logger.WithField("document_id", documentID)

	jobs, err := s.jobs.ListByDocument(documentID)
	if err != nil {
		log.WithError(err).Warn("Failed to list generation jobs for cleanup")
	}
	removed := 0
	for _, job := range jobs {
		for _, fileID := range []string{job.FeatureFileID, job.ScriptFileID, job.ReportFileID} {
			if fileID == "" {
				continue
			}
			if err := s.outputs.Delete(fileID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				log.WithError(err).WithField("file_id", fileID).Warn("Failed to delete generated artifact")
				continue
			}
			removed++
		}
	}

	if s.queue != nil {
		tasks, err := s.queue.GetTasksByDocument(ctx, documentID)
		if err != nil {
			log.WithError(err).Warn("Failed to list queued tasks for cleanup")
		}
		for _, task := range tasks {
			if err := s.queue.DeleteTask(ctx, task.ID); err != nil {
				log.WithError(err).WithField("task_id", task.ID).Warn("Failed to delete queued task")
			}
		}
	}

	log.WithFields(logrus.Fields{"jobs": len(jobs), "artifacts": removed}).Debug("Generation outputs purged")
}

func (s *GenerationService) markFailed(jobID string, cause error) {
	if err := s.jobs.UpdateStatus(jobID, models.JobStatusFailed, cause.Error()); err != nil {
		s.logger.WithError(err).WithField("job_id", jobID).Error("Failed to mark job as failed")
	}
}

// artifactName 产物的下载文件名
func artifactName(base string, kind ArtifactKind) string {
	switch kind {
	case ArtifactFeature:
		return base + ".feature"
	case ArtifactScript:
		return base + ".spec.ts"
	default:
		return base + "_summary.pdf"
	}
}

func artifactContentType(kind ArtifactKind) string {
	switch kind {
	case ArtifactFeature:
		return "text/plain; charset=utf-8"
	case ArtifactScript:
		return "application/typescript; charset=utf-8"
	default:
		return "application/pdf"
	}
}

// analysisKeyPrefix 同一文档所有缓存结果的公共前缀
func analysisKeyPrefix(documentID string) string {
	return cache.GenerateCacheKey("analysis", documentID) + ":"
}

// analysisKey 文档ID加选项摘要组成缓存键
func analysisKey(documentID string, opts render.Options) string {
	raw, _ := json.Marshal(opts)
	sum := sha1.Sum(raw)
	return analysisKeyPrefix(documentID) + hex.EncodeToString(sum[:])
}
