package resume

import (
	"context"
	"fmt"
	"time"

	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/tracing"
	"campus-ml-go/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("campus-ml-go/internal/resume")

// Pipeline 文档字节 -> 文本 -> 候选人信息
type Pipeline struct {
	textExtractor parser.TextExtractor
	extractor     *Extractor
}

// NewPipeline 组装解析流水线
func NewPipeline(textExtractor parser.TextExtractor, extractor *Extractor) *Pipeline {
	if extractor == nil {
		extractor = NewExtractor()
	}
	return &Pipeline{textExtractor: textExtractor, extractor: extractor}
}

// Extractor 返回文本抽取器
func (p *Pipeline) Extractor() *Extractor {
	return p.extractor
}

// ParseDocument 解析PDF字节。要么返回完整的候选人信息，要么返回单个错误。
// 调用方的上下文超时或取消时丢弃部分结果。
func (p *Pipeline) ParseDocument(ctx context.Context, data []byte, uri string) (*types.CandidateProfile, error) {
	ctx, span := tracer.Start(ctx, "resume.ParseDocument")
	defer span.End()
	span.SetAttributes(
		attribute.String("resume.uri", tracing.TruncateString(uri, tracing.DefaultMaxLength)),
		attribute.Int("resume.bytes", len(data)),
		attribute.String("resume.backend", p.textExtractor.Backend()),
	)

	start := time.Now()
	text, _, err := p.textExtractor.ExtractTextFromBytes(ctx, data, uri)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, err
	}

	profile := p.extractor.Extract(ctx, text)
	if err := ctx.Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeTimeout)
		return nil, fmt.Errorf("解析被中断: %w", err)
	}

	span.SetAttributes(attribute.Int("resume.text_length", len(text)))
	span.SetAttributes(tracing.ProfileAttributes(profile)...)
	logger.Ctx(ctx).Info().
		Str("uri", uri).
		Str("name", tracing.MaskPII(profile.Name)).
		Str("email", tracing.MaskPII(profile.Email)).
		Int("skills", len(profile.Skills)).
		Int("projects", len(profile.Projects)).
		Int("education", len(profile.Education)).
		Int("experience", len(profile.Experience)).
		Dur("duration", time.Since(start)).
		Msg("简历解析完成")
	return profile, nil
}
