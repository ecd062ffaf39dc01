package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/gherkin-gen/internal/cache"
	"github.com/fyerfyer/gherkin-gen/internal/document"
	"github.com/fyerfyer/gherkin-gen/internal/models"
	"github.com/fyerfyer/gherkin-gen/internal/repository"
	"github.com/fyerfyer/gherkin-gen/pkg/storage"
	"github.com/sirupsen/logrus"
)

// DocumentService 需求文档服务
// 负责上传文件的保存、元数据管理和按格式解析为段落
type DocumentService struct {
	storage storage.Storage               // 上传文件存储
	repo    repository.DocumentRepository // 文档元数据
	cache   cache.Cache                   // 生成结果缓存，删除文档时清理
	logger  *logrus.Logger

	onDelete []func(ctx context.Context, documentID string) // 删除文档记录前执行的清理
}

// DocumentOption 文档服务配置选项
type DocumentOption func(*DocumentService)

// NewDocumentService 创建文档服务
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, opts ...DocumentOption) *DocumentService {
	s := &DocumentService{
		storage: store,
		repo:    repo,
		logger:  logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithDocumentLogger 设置日志记录器
func WithDocumentLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDocumentCache 设置生成结果缓存
func WithDocumentCache(c cache.Cache) DocumentOption {
	return func(s *DocumentService) {
		s.cache = c
	}
}

// Upload 保存上传的需求文档并登记元数据
func (s *DocumentService) Upload(ctx context.Context, r io.Reader, filename string) (*models.Document, error) {
	filename = strings.TrimSpace(filepath.Base(filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return nil, ErrEmptyFileName
	}
	if !document.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}

	info, err := s.storage.Save(r, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	doc := &models.Document{
		ID:          info.ID,
		FileName:    filename,
		FileType:    string(document.DetectContentType(filename)),
		StoragePath: info.Path,
		FileSize:    info.Size,
		Status:      models.DocStatusUploaded,
	}
	if err := s.repo.Create(doc); err != nil {
		if delErr := s.storage.Delete(info.ID); delErr != nil {
			s.logger.WithError(delErr).WithField("file_id", info.ID).Warn("Failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("failed to save document metadata: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"file_name":   filename,
		"file_size":   info.Size,
	}).Info("Document uploaded")
	return doc, nil
}

// Get 获取文档元数据
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.repo.GetByID(id)
}

// List 分页列出文档
func (s *DocumentService) List(ctx context.Context, page, pageSize int) ([]*models.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return s.repo.List((page-1)*pageSize, pageSize)
}

// Delete 删除文档元数据和文件，并清理生成产物与缓存的生成结果
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return err
	}
	for _, cleanup := range s.onDelete {
		cleanup(ctx, id)
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}

	log := s.logger.WithField("document_id", id)
	if err := s.storage.Delete(id); err != nil {
		log.WithError(err).Warn("Failed to delete document file")
	}
	if s.cache != nil {
		if err := s.cache.DeletePrefix(analysisKeyPrefix(id)); err != nil {
			log.WithError(err).Warn("Failed to invalidate cached analysis")
		}
	}

	log.Info("Document deleted")
	return nil
}

// beforeDelete 注册删除文档记录前的清理函数
func (s *DocumentService) beforeDelete(fn func(ctx context.Context, documentID string)) {
	s.onDelete = append(s.onDelete, fn)
}

// Lines 读取文档并解析为段落行
func (s *DocumentService) Lines(ctx context.Context, id string) (*models.Document, []string, error) {
	doc, err := s.repo.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	parser, err := document.ParserFactory(doc.FileName)
	if err != nil {
		return nil, nil, err
	}

	r, err := s.storage.Get(doc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document file: %w", err)
	}
	defer r.Close()

	lines, err := parser.ParseReader(r, doc.FileName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse document %s: %w", doc.FileName, err)
	}

	s.logger.WithFields(logrus.Fields{
		"document_id": id,
		"lines":       len(lines),
	}).Debug("Document parsed")
	return doc, lines, nil
}
