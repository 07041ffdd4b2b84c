package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"campus-ml-go/internal/logger"

	einopdf "github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

// defaultEinoTimeout eino 解析默认超时
const defaultEinoTimeout = 30 * time.Second

// EinoPDFTextExtractor 使用 eino-ext PDF Parser 提取文本。
// eino 遇到单页失败会放弃整个文档，此时退回逐页容错解析；
// 只有文档本身无法打开时才返回 ParseError。
type EinoPDFTextExtractor struct {
	parser   *einopdf.PDFParser
	fallback *PagedPDFExtractor
	logger   zerolog.Logger
	timeout  time.Duration
}

var _ TextExtractor = (*EinoPDFTextExtractor)(nil)

// EinoPDFOption PDF提取器的配置选项
type EinoPDFOption func(*EinoPDFTextExtractor)

// WithEinoLogger 配置自定义日志记录器
func WithEinoLogger(l zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		e.logger = l
	}
}

// WithEinoTimeout 配置单个文档的解析超时
func WithEinoTimeout(d time.Duration) EinoPDFOption {
	return func(e *EinoPDFTextExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoPDFTextExtractor 初始化 Eino PDF 文本提取器
func NewEinoPDFTextExtractor(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTextExtractor, error) {
	p, err := einopdf.NewPDFParser(ctx, &einopdf.Config{
		ToPages: true,
	})
	if err != nil {
		return nil, fmt.Errorf("创建Eino PDF解析器失败: %w", err)
	}

	extractor := &EinoPDFTextExtractor{
		parser:  p,
		logger:  logger.Component("pdf_eino"),
		timeout: defaultEinoTimeout,
	}
	for _, option := range options {
		option(extractor)
	}
	extractor.fallback = NewPagedPDFExtractor(
		WithPagedLogger(extractor.logger),
		WithPagedTimeout(extractor.timeout),
	)
	return extractor, nil
}

// Backend 后端名称
func (e *EinoPDFTextExtractor) Backend() string {
	return BackendEino
}

// ExtractTextFromReader 从 io.Reader 中提取文本
func (e *EinoPDFTextExtractor) ExtractTextFromReader(ctx context.Context, reader io.Reader, uri string) (string, map[string]interface{}, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", nil, fmt.Errorf("读取PDF内容失败: %w", err)
	}
	return e.ExtractTextFromBytes(ctx, data, uri)
}

// ExtractTextFromBytes 从字节数组提取文本内容
func (e *EinoPDFTextExtractor) ExtractTextFromBytes(ctx context.Context, data []byte, uri string) (string, map[string]interface{}, error) {
	startTime := time.Now()
	meta := map[string]interface{}{
		MetaURI:         uri,
		MetaBackend:     BackendEino,
		MetaSourceBytes: len(data),
	}
	if len(data) == 0 {
		meta[MetaPageCount] = 0
		meta[MetaTextLength] = 0
		return "", meta, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{MetaBackend: BackendEino}),
	)
	duration := time.Since(startTime)
	if err != nil {
		return e.recoverFromParseFailure(ctx, data, uri, meta, err)
	}

	var sb strings.Builder
	emptyPages := 0
	for _, doc := range docs {
		if doc.Content == "" {
			emptyPages++
		}
		sb.WriteString(doc.Content)
	}
	text := sb.String()

	meta[MetaPageCount] = len(docs)
	meta[MetaEmptyPages] = emptyPages
	meta[MetaTextLength] = len(text)
	meta[MetaDurationMS] = duration.Milliseconds()

	e.logger.Debug().Str("uri", uri).Int("pages", len(docs)).Int("chars", len(text)).Dur("duration", duration).Msg("Eino PDF提取完成")
	return text, meta, nil
}

// recoverFromParseFailure 区分文档级失败和页级失败，页级失败退回逐页解析
func (e *EinoPDFTextExtractor) recoverFromParseFailure(ctx context.Context, data []byte, uri string, meta map[string]interface{}, parseErr error) (string, map[string]interface{}, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", nil, fmt.Errorf("Eino解析PDF被中断: %w", ctxErr)
	}
	if _, openErr := openPDF(data); openErr != nil {
		e.logger.Error().Err(parseErr).Str("uri", uri).Msg("Eino解析PDF失败，文档无法打开")
		return "", nil, newParseError(uri, BackendEino, openErr)
	}

	e.logger.Warn().Err(parseErr).Str("uri", uri).Msg("Eino解析失败，退回逐页解析")
	text, pagedMeta, err := e.fallback.ExtractTextFromBytes(ctx, data, uri)
	if err != nil {
		return "", nil, err
	}
	for _, key := range []string{MetaPageCount, MetaEmptyPages, MetaTextLength, MetaDurationMS} {
		if v, ok := pagedMeta[key]; ok {
			meta[key] = v
		}
	}
	meta[MetaFallback] = BackendPages
	return text, meta, nil
}
