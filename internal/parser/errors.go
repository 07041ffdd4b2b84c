package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentOpen 文档无法打开或解码
	ErrDocumentOpen = errors.New("无法打开文档")
	// ErrUnsupportedBackend 未知的解析后端
	ErrUnsupportedBackend = errors.New("不支持的解析后端")
)

// ParseError 文档级别的解析失败，是文本提取中唯一的终止性错误
type ParseError struct {
	URI     string // 文档标识
	Backend string // 使用的解析后端
	Cause   error  // 底层错误
}

func (e *ParseError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("%s: [%s] %v", ErrDocumentOpen, e.Backend, e.Cause)
	}
	return fmt.Sprintf("%s %s: [%s] %v", ErrDocumentOpen, e.URI, e.Backend, e.Cause)
}

// Unwrap 返回底层错误
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is 使 errors.Is(err, ErrDocumentOpen) 对所有 ParseError 成立
func (e *ParseError) Is(target error) bool {
	return target == ErrDocumentOpen
}

func newParseError(uri, backend string, cause error) *ParseError {
	return &ParseError{URI: uri, Backend: backend, Cause: cause}
}

// IsParseError 判断错误链中是否有 ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
