package parser

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"campus-ml-go/internal/testutil"

	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPagedExtractorConcatenatesPagesInOrder(t *testing.T) {
	data := testutil.BuildPDF("First page text", "Second page text")
	extractor := NewPagedPDFExtractor()

	text, meta, err := extractor.ExtractTextFromBytes(context.Background(), data, "two-pages.pdf")
	require.NoError(t, err, "合法PDF不应返回错误")

	first := strings.Index(text, "First page text")
	second := strings.Index(text, "Second page text")
	require.GreaterOrEqual(t, first, 0, "应包含第一页文本")
	require.GreaterOrEqual(t, second, 0, "应包含第二页文本")
	assert.Less(t, first, second, "页面应按顺序拼接")

	assert.Equal(t, 2, meta[MetaPageCount], "页数应为2")
	assert.Equal(t, BackendPages, meta[MetaBackend])
}

func TestPagedExtractorEmptyPageContributesNothing(t *testing.T) {
	data := testutil.BuildPDF("Only text here", "")
	text, meta, err := NewPagedPDFExtractor().ExtractTextFromBytes(context.Background(), data, "")
	require.NoError(t, err, "空页不应导致错误")
	assert.Contains(t, text, "Only text here")
	assert.Equal(t, 1, meta[MetaEmptyPages], "应记录一页空页")
}

func TestPagedExtractorSkipsUnreadablePage(t *testing.T) {
	data := testutil.BuildPDFFromStreams(testutil.TextStream("Alpha page"), testutil.BrokenPageStream)
	text, meta, err := NewPagedPDFExtractor().ExtractTextFromBytes(context.Background(), data, "broken-page.pdf")
	require.NoError(t, err, "单页提取失败不应导致整个文档失败")
	assert.Equal(t, "Alpha page", strings.TrimSpace(text), "失败的页应贡献空文本")
	assert.Equal(t, 2, meta[MetaPageCount])
	assert.Equal(t, 1, meta[MetaEmptyPages], "失败的页按空页计数")
}

func TestPagedExtractorZeroLengthInput(t *testing.T) {
	text, meta, err := NewPagedPDFExtractor().ExtractTextFromBytes(context.Background(), nil, "empty.pdf")
	require.NoError(t, err, "空输入视为空文档，不应报错")
	assert.Equal(t, "", text)
	assert.Equal(t, 0, meta[MetaPageCount])
}

func TestPagedExtractorCorruptDocument(t *testing.T) {
	_, _, err := NewPagedPDFExtractor().ExtractTextFromBytes(context.Background(), []byte("this is not a pdf"), "bad.pdf")
	require.Error(t, err, "无法打开的文档应返回错误")
	assert.True(t, errors.Is(err, ErrDocumentOpen), "错误应可识别为 ErrDocumentOpen")
	assert.True(t, IsParseError(err), "错误应为 ParseError")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "bad.pdf", pe.URI)
	assert.Equal(t, BackendPages, pe.Backend)
}

func TestPagedExtractorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewPagedPDFExtractor().ExtractTextFromBytes(ctx, testutil.BuildPDF("text"), "x.pdf")
	require.Error(t, err, "上下文取消后应返回错误")
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsParseError(err), "取消不是文档解析错误")
}

func TestPagedExtractorImplementsEinoParser(t *testing.T) {
	data := testutil.BuildPDF("Alpha", "Beta")
	docs, err := NewPagedPDFExtractor().Parse(context.Background(), bytes.NewReader(data),
		einoParser.WithURI("resume.pdf"),
		einoParser.WithExtraMeta(map[string]any{"owner": "tester"}),
	)
	require.NoError(t, err)
	require.Len(t, docs, 2, "每页应返回一个文档")

	assert.Contains(t, docs[0].Content, "Alpha")
	assert.Contains(t, docs[1].Content, "Beta")
	assert.Equal(t, 1, docs[0].MetaData[MetaPageNumber])
	assert.Equal(t, 2, docs[1].MetaData[MetaPageNumber])
	assert.Equal(t, "tester", docs[1].MetaData["owner"], "额外元数据应传递到每一页")
	assert.Equal(t, "resume.pdf#page=2", docs[1].ID)
}

func TestParseErrorMessage(t *testing.T) {
	err := newParseError("a.pdf", BackendEino, errors.New("boom"))
	assert.Contains(t, err.Error(), "a.pdf")
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "boom", errors.Unwrap(err).Error())
}
