package model

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// GenerationRequest 场景生成请求
// 未提供的选项使用服务端配置的默认值
type GenerationRequest struct {
	DocumentID               string      `json:"document_id" binding:"required"`
	Mode                     *string     `json:"mode"`
	OutlineOptimization      *bool       `json:"outline_optimization"`
	PreserveBulletFormatting *bool       `json:"preserve_bullet_formatting"`
	StrictActorReferencing   *bool       `json:"strict_actor_referencing"`
	Guidelines               *string     `json:"guidelines"`
	TopN                     interface{} `json:"top_n"` // 数字或字符串，无法解析时使用默认值
	Async                    bool        `json:"async"`
	WaitSeconds              int         `json:"wait_seconds" binding:"omitempty,min=0,max=300"` // 异步时最多等待的秒数
}

// TraceabilityRequest 可追溯性图请求
type TraceabilityRequest struct {
	DocumentID string      `json:"document_id" binding:"required"`
	Mode       *string     `json:"mode"`
	TopN       interface{} `json:"top_n"`
}
