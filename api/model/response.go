package model

import (
	"encoding/json"
	"time"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// DocumentInfo 需求文档信息
type DocumentInfo struct {
	FileID     string    `json:"file_id"`     // 文件ID
	FileName   string    `json:"filename"`    // 文件名
	FileType   string    `json:"file_type"`   // 文件类型
	FileSize   int64     `json:"file_size"`   // 文件大小
	Status     string    `json:"status"`      // 状态
	UploadTime time.Time `json:"upload_time"` // 上传时间
}

// DocumentListResponse 文档列表响应
type DocumentListResponse struct {
	Total     int64          `json:"total"`     // 总数量
	Page      int            `json:"page"`      // 当前页码
	PageSize  int            `json:"page_size"` // 每页大小
	Documents []DocumentInfo `json:"documents"` // 文档列表
}

// DocumentDeleteResponse 文档删除响应
type DocumentDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	FileID  string `json:"file_id"` // 文件ID
}

// GenerationJobResponse 生成任务响应
type GenerationJobResponse struct {
	JobID       string            `json:"job_id"`
	DocumentID  string            `json:"document_id"`
	Status      string            `json:"status"`
	TaskID      string            `json:"task_id,omitempty"`
	Error       string            `json:"error,omitempty"`
	Options     json.RawMessage   `json:"options,omitempty"`
	Summary     json.RawMessage   `json:"summary,omitempty"`
	Artifacts   map[string]string `json:"artifacts,omitempty"` // 产物类型到下载地址
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// GenerationListResponse 文档的生成任务列表
type GenerationListResponse struct {
	DocumentID string                  `json:"document_id"`
	Jobs       []GenerationJobResponse `json:"jobs"`
}
