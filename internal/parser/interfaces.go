package parser

import (
	"context"
	"io"
)

const (
	// BackendPages 逐页容错的 dslipak/pdf 解析后端
	BackendPages = "pages"
	// BackendEino eino-ext PDF 解析后端，页级失败时退回 BackendPages
	BackendEino = "eino"
)

// 元数据键
const (
	MetaURI         = "uri"
	MetaBackend     = "backend"
	MetaPageCount   = "page_count"
	MetaEmptyPages  = "empty_pages"
	MetaTextLength  = "text_length"
	MetaDurationMS  = "processing_duration_ms"
	MetaPageNumber  = "page_number"
	MetaSourceBytes = "source_bytes"
	// MetaFallback 实际完成解析的后备后端
	MetaFallback = "fallback_backend"
)

// TextExtractor 将文档字节转换为纯文本。
// 文档无法打开时返回 *ParseError，其余情况（空页、空文档）返回空文本而不是错误。
type TextExtractor interface {
	// ExtractTextFromReader 从 io.Reader 提取文本和元数据
	ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error)

	// ExtractTextFromBytes 从字节数组提取文本和元数据
	ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error)

	// Backend 后端名称
	Backend() string
}
