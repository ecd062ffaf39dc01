package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fyerfyer/gherkin-gen/api/middleware"
	"github.com/fyerfyer/gherkin-gen/api/model"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/fyerfyer/gherkin-gen/internal/scenario"
	"github.com/fyerfyer/gherkin-gen/internal/services"
	"github.com/fyerfyer/gherkin-gen/internal/trace"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// GenerationHandler 处理场景生成相关的API请求
type GenerationHandler struct {
	generationService *services.GenerationService
	logger            *logrus.Logger
}

// NewGenerationHandler 创建新的生成处理器
func NewGenerationHandler(generationService *services.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		logger:            middleware.GetLogger(),
	}
}

// CreateGeneration 为已上传的文档生成特性文件、测试脚本和报告
// POST /api/generations
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	var req model.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid request parameters", err.Error()))
		return
	}

	opts := mergeOptions(h.generationService.Defaults(), req)
	h.logger.WithFields(logrus.Fields{
		"document_id": req.DocumentID,
		"mode":        opts.Mode,
		"async":       req.Async,
		"trace_id":    middleware.TraceID(c),
	}).Info("Generation requested")

	job, err := h.generationService.Generate(c.Request.Context(), req.DocumentID, opts, req.Async)
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}

	if !job.Status.IsFinal() && req.WaitSeconds > 0 {
		job, err = h.generationService.Await(c.Request.Context(), job.ID, time.Duration(req.WaitSeconds)*time.Second)
		if err != nil {
			middleware.HandleError(c, serviceError(err))
			return
		}
	}

	status := http.StatusOK
	if !job.Status.IsFinal() {
		status = http.StatusAccepted
	}
	c.JSON(status, model.NewSuccessResponse(toJobResponse(job)))
}

// GetGeneration 查询生成任务状态和汇总
// GET /api/generations/:id
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	job, err := h.generationService.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(toJobResponse(job)))
}

// ListGenerations 列出文档的生成任务
// GET /api/documents/:id/generations
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	docID := c.Param("id")
	jobs, err := h.generationService.ListJobs(c.Request.Context(), docID)
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}

	resp := model.GenerationListResponse{
		DocumentID: docID,
		Jobs:       make([]model.GenerationJobResponse, 0, len(jobs)),
	}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DownloadArtifact 下载生成产物
// GET /api/generations/:id/artifacts/:kind
func (h *GenerationHandler) DownloadArtifact(c *gin.Context) {
	kind := services.ArtifactKind(c.Param("kind"))
	artifact, err := h.generationService.OpenArtifact(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}
	defer artifact.Reader.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.FileName))
	c.Header("Content-Type", artifact.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, artifact.Reader); err != nil {
		h.logger.WithError(err).WithField("job_id", c.Param("id")).Warn("Artifact download interrupted")
	}
}

// Traceability 返回文档的需求-场景-主题图
// POST /api/traceability
func (h *GenerationHandler) Traceability(c *gin.Context) {
	var req model.TraceabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid request parameters", err.Error()))
		return
	}

	defaults := h.generationService.Defaults()
	mode := defaults.Mode
	if req.Mode != nil {
		mode = scenario.ParseMode(*req.Mode)
	}

	graph, err := h.generationService.Traceability(c.Request.Context(), req.DocumentID, mode, parseTopN(req.TopN, defaults.TopN))
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(graph))
}

// mergeOptions 以默认选项为基础覆盖请求中提供的字段
func mergeOptions(defaults services.GenerationOptions, req model.GenerationRequest) services.GenerationOptions {
	opts := defaults
	if req.Mode != nil {
		opts.Mode = scenario.ParseMode(*req.Mode)
	}
	if req.OutlineOptimization != nil {
		opts.OutlineOptimization = *req.OutlineOptimization
	}
	if req.PreserveBulletFormatting != nil {
		opts.PreserveBulletFormatting = *req.PreserveBulletFormatting
	}
	if req.StrictActorReferencing != nil {
		opts.StrictActorReferencing = *req.StrictActorReferencing
	}
	if req.Guidelines != nil {
		opts.Guidelines = *req.Guidelines
	}
	opts.TopN = parseTopN(req.TopN, defaults.TopN)
	return opts
}

// parseTopN 未提供时使用默认值，其余交给trace.ParseTopN
func parseTopN(v interface{}, fallback int) int {
	if v == nil {
		return fallback
	}
	if f, ok := v.(float64); ok && f == float64(int(f)) {
		return int(f)
	}
	return trace.ParseTopN(fmt.Sprint(v))
}

func toJobResponse(job *models.GenerationJob) model.GenerationJobResponse {
	resp := model.GenerationJobResponse{
		JobID:       job.ID,
		DocumentID:  job.DocumentID,
		Status:      string(job.Status),
		TaskID:      job.TaskID,
		Error:       job.Error,
		Options:     json.RawMessage(job.Options),
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if len(job.Summary) > 0 {
		resp.Summary = json.RawMessage(job.Summary)
	}
	if job.Status == models.JobStatusCompleted {
		resp.Artifacts = map[string]string{}
		for _, kind := range []services.ArtifactKind{services.ArtifactFeature, services.ArtifactScript, services.ArtifactReport} {
			resp.Artifacts[string(kind)] = fmt.Sprintf("/api/generations/%s/artifacts/%s", job.ID, kind)
		}
	}
	return resp
}
