package services

import (
	"errors"

	"github.com/fyerfyer/gherkin-gen/internal/document"
)

var (
	// ErrUnsupportedFormat 上传的文件类型不受支持
	ErrUnsupportedFormat = document.ErrUnsupportedFormat

	// ErrEmptyFileName 上传的文件没有文件名
	ErrEmptyFileName = errors.New("file name is empty")

	// ErrJobNotReady 任务尚未完成，产物不可下载
	ErrJobNotReady = errors.New("generation job is not completed")

	// ErrUnknownArtifact 未知的产物类型
	ErrUnknownArtifact = errors.New("unknown artifact kind")
)
