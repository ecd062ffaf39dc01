package models

import "errors"

var (
	// ErrDocumentNotFound 文档不存在错误
	ErrDocumentNotFound = errors.New("document not found")

	// ErrJobNotFound 生成任务不存在错误
	ErrJobNotFound = errors.New("generation job not found")
)
