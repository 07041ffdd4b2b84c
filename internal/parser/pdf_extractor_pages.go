package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"campus-ml-go/internal/logger"

	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
	"github.com/dslipak/pdf"
	"github.com/rs/zerolog"
)

// PagedPDFExtractor 基于 dslipak/pdf 的逐页文本提取器。
// 单页提取失败（包括库内部 panic）只会让该页贡献空字符串，不影响其它页。
// 同时实现了 eino 的 document/parser.Parser 接口，每页返回一个 schema.Document。
type PagedPDFExtractor struct {
	logger  zerolog.Logger
	timeout time.Duration
}

var _ einoParser.Parser = (*PagedPDFExtractor)(nil)
var _ TextExtractor = (*PagedPDFExtractor)(nil)

// PagedPDFOption 逐页提取器选项
type PagedPDFOption func(*PagedPDFExtractor)

// WithPagedLogger 指定日志记录器
func WithPagedLogger(l zerolog.Logger) PagedPDFOption {
	return func(e *PagedPDFExtractor) {
		e.logger = l
	}
}

// WithPagedTimeout 整个文档的提取超时，0 表示不限制
func WithPagedTimeout(d time.Duration) PagedPDFOption {
	return func(e *PagedPDFExtractor) {
		e.timeout = d
	}
}

// NewPagedPDFExtractor 创建逐页提取器
func NewPagedPDFExtractor(opts ...PagedPDFOption) *PagedPDFExtractor {
	e := &PagedPDFExtractor{
		logger: logger.Component("pdf_pages"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend 后端名称
func (e *PagedPDFExtractor) Backend() string {
	return BackendPages
}

// openPDF 打开文档，库内部 panic 视为无法打开
func openPDF(data []byte) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = fmt.Errorf("打开PDF时发生panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(data), int64(len(data)))
}

// pageText 提取单页文本，任何失败都返回空字符串
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("第%d页提取时发生panic: %v", num, rec)
		}
	}()
	p := r.Page(num)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// extractPages 返回每一页的文本，长度等于页数
func (e *PagedPDFExtractor) extractPages(ctx context.Context, data []byte, uri string) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	r, err := openPDF(data)
	if err != nil {
		return nil, newParseError(uri, BackendPages, err)
	}

	numPages := r.NumPage()
	pages := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("提取第%d页前上下文已结束: %w", i, err)
		}
		text, err := pageText(r, i)
		if err != nil {
			e.logger.Warn().Err(err).Str("uri", uri).Int("page", i).Msg("页面文本提取失败，按空页处理")
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func (e *PagedPDFExtractor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// Parse 实现 eino parser.Parser，每页一个文档，空页也会返回空内容的文档
func (e *PagedPDFExtractor) Parse(ctx context.Context, reader io.Reader, opts ...einoParser.Option) ([]*schema.Document, error) {
	commonOpts := einoParser.GetCommonOptions(&einoParser.Options{}, opts...)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取PDF内容失败: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	pages, err := e.extractPages(ctx, data, commonOpts.URI)
	if err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(pages))
	for i, text := range pages {
		meta := make(map[string]any, len(commonOpts.ExtraMeta)+2)
		for k, v := range commonOpts.ExtraMeta {
			meta[k] = v
		}
		meta[MetaPageNumber] = i + 1
		meta[MetaURI] = commonOpts.URI
		docs = append(docs, &schema.Document{
			ID:       fmt.Sprintf("%s#page=%d", commonOpts.URI, i+1),
			Content:  text,
			MetaData: meta,
		})
	}
	return docs, nil
}

// ExtractTextFromReader 读取全部内容后按页提取
func (e *PagedPDFExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取PDF内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri)
}

// ExtractTextFromBytes 按页顺序拼接文本，页与页之间不加分隔符
func (e *PagedPDFExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	start := time.Now()
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	pages, err := e.extractPages(ctx, data, uri)
	if err != nil {
		e.logger.Error().Err(err).Str("uri", uri).Msg("PDF文本提取失败")
		return "", nil, err
	}

	var sb strings.Builder
	emptyPages := 0
	for _, p := range pages {
		if p == "" {
			emptyPages++
		}
		sb.WriteString(p)
	}
	text := sb.String()

	duration := time.Since(start)
	meta := map[string]interface{}{
		MetaURI:         uri,
		MetaBackend:     BackendPages,
		MetaPageCount:   len(pages),
		MetaEmptyPages:  emptyPages,
		MetaTextLength:  len(text),
		MetaSourceBytes: len(data),
		MetaDurationMS:  duration.Milliseconds(),
	}
	e.logger.Debug().
		Str("uri", uri).
		Int("pages", len(pages)).
		Int("empty_pages", emptyPages).
		Int("chars", len(text)).
		Dur("duration", duration).
		Msg("PDF文本提取完成")
	return text, meta, nil
}
