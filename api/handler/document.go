package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/gherkin-gen/api/middleware"
	"github.com/fyerfyer/gherkin-gen/api/model"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/fyerfyer/gherkin-gen/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DocumentHandler 处理需求文档相关的API请求
type DocumentHandler struct {
	documentService *services.DocumentService
	maxUploadSize   int64 // 上传大小上限，0表示不限制
	logger          *logrus.Logger
}

// NewDocumentHandler 创建新的文档处理器
func NewDocumentHandler(documentService *services.DocumentService, maxUploadSize int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadSize:   maxUploadSize,
		logger:          middleware.GetLogger(),
	}
}

// UploadDocument 上传需求文档
// POST /api/documents
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	if h.maxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.HandleError(c, middleware.NewValidationError("File too large"))
			return
		}
		middleware.HandleError(c, middleware.NewValidationError("No file part", err.Error()))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to open uploaded file", err.Error()))
		return
	}
	defer file.Close()

	doc, err := h.documentService.Upload(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, services.ErrUnsupportedFormat) || errors.Is(err, services.ErrEmptyFileName) {
			middleware.HandleError(c, middleware.NewValidationError("Invalid file format", err.Error()))
			return
		}
		middleware.HandleError(c, middleware.NewInternalError("Failed to save document", err.Error()))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(toDocumentInfo(doc)))
}

// GetDocument 获取文档信息
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.documentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(toDocumentInfo(doc)))
}

// ListDocuments 分页列出文档
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req model.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid pagination parameters", err.Error()))
		return
	}

	page, pageSize := req.GetPage(), req.GetPageSize()
	docs, total, err := h.documentService.List(c.Request.Context(), page, pageSize)
	if err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}

	resp := model.DocumentListResponse{
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
		Documents: make([]model.DocumentInfo, 0, len(docs)),
	}
	for _, doc := range docs {
		resp.Documents = append(resp.Documents, toDocumentInfo(doc))
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteDocument 删除文档及其生成任务
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	id := c.Param("id")
	if err := h.documentService.Delete(c.Request.Context(), id); err != nil {
		middleware.HandleError(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{Success: true, FileID: id}))
}

func toDocumentInfo(doc *models.Document) model.DocumentInfo {
	return model.DocumentInfo{
		FileID:     doc.ID,
		FileName:   doc.FileName,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		Status:     string(doc.Status),
		UploadTime: doc.UploadedAt,
	}
}

// serviceError 将服务层错误转换为对应的AppError
func serviceError(err error) error {
	switch {
	case errors.Is(err, models.ErrDocumentNotFound):
		return middleware.NewNotFoundError("Document not found")
	case errors.Is(err, models.ErrJobNotFound):
		return middleware.NewNotFoundError("Generation job not found")
	case errors.Is(err, services.ErrUnknownArtifact):
		return middleware.NewValidationError("Unknown artifact kind", err.Error())
	case errors.Is(err, services.ErrJobNotReady):
		return middleware.NewConflictError("Generation job is not completed")
	case errors.Is(err, services.ErrUnsupportedFormat):
		return middleware.NewValidationError("Invalid file format", err.Error())
	default:
		return middleware.NewInternalError("Internal server error", err.Error())
	}
}
