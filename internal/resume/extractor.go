package resume

import (
	"context"
	"strings"

	"campus-ml-go/internal/types"
)

// Extractor 从纯文本中抽取候选人信息。只持有只读依赖，可并发使用。
type Extractor struct {
	lexicon    *Lexicon
	recognizer NameRecognizer
}

// ExtractorOption 配置 Extractor
type ExtractorOption func(*Extractor)

// WithLexicon 使用指定的技能词库
func WithLexicon(l *Lexicon) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.lexicon = l
		}
	}
}

// WithNameRecognizer 使用人名识别器
func WithNameRecognizer(r NameRecognizer) ExtractorOption {
	return func(e *Extractor) {
		e.recognizer = r
	}
}

// NewExtractor 创建抽取器，默认使用内置词库且不做人名识别
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{lexicon: DefaultLexicon()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Lexicon 当前使用的词库
func (e *Extractor) Lexicon() *Lexicon {
	return e.lexicon
}

// Extract 组装候选人信息。空文本直接返回全空结果，其余字段各自独立抽取。
func (e *Extractor) Extract(ctx context.Context, text string) *types.CandidateProfile {
	if strings.TrimSpace(text) == "" {
		return types.EmptyProfile()
	}
	return &types.CandidateProfile{
		Name:       ExtractName(ctx, text, e.recognizer),
		Email:      ExtractEmail(text),
		Phone:      ExtractPhone(text),
		Skills:     ExtractSkills(text, e.lexicon),
		Projects:   ExtractProjects(text),
		Education:  ExtractEducation(text),
		Experience: ExtractExperience(text),
		Summary:    ExtractSummary(text),
	}
}
