// Package ner 人名实体识别。未配置模型时使用 Nop 实现，姓名提取退回到首行文本。
package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/tracing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTimeout = 5 * time.Second
	maxInputRunes  = 200
)

var tracer = otel.Tracer("campus-ml-go/internal/ner")

const systemPrompt = `你是一个命名实体识别工具。从用户给出的文本中找出所有人名(PERSON)实体，按出现顺序输出。
只输出 JSON，格式为 {"persons": ["..."]}，没有人名时输出 {"persons": []}。不要输出任何解释。`

// Nop 不识别任何实体
type Nop struct{}

func (Nop) RecognizePerson(context.Context, string) (string, error) { return "", nil }

// LLMRecognizer 通过对话模型识别人名
type LLMRecognizer struct {
	chat    model.ToolCallingChatModel
	timeout time.Duration
	log     zerolog.Logger
}

// Option LLMRecognizer 配置项
type Option func(*LLMRecognizer)

// WithTimeout 单次识别超时
func WithTimeout(d time.Duration) Option {
	return func(r *LLMRecognizer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewLLMRecognizer 创建识别器，chat 通常是带限流的模型
func NewLLMRecognizer(chat model.ToolCallingChatModel, opts ...Option) *LLMRecognizer {
	r := &LLMRecognizer{
		chat:    chat,
		timeout: defaultTimeout,
		log:     logger.Component("ner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type personsReply struct {
	Persons []string `json:"persons"`
}

// RecognizePerson 返回第一个人名。模型输出中不在原文里的名字会被丢弃。
func (r *LLMRecognizer) RecognizePerson(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if runes := []rune(text); len(runes) > maxInputRunes {
		text = string(runes[:maxInputRunes])
	}

	ctx, span := tracer.Start(ctx, "ner.RecognizePerson")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	reply, err := r.chat.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(text),
	}, model.WithTemperature(0))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		r.log.Warn().Err(err).Msg("人名识别调用失败")
		return "", fmt.Errorf("ner: generate: %w", err)
	}

	persons, err := parsePersons(reply.Content)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		r.log.Warn().Err(err).Str("reply", tracing.TruncateString(reply.Content, 100)).Msg("人名识别结果无法解析")
		return "", err
	}

	lower := strings.ToLower(text)
	for _, p := range persons {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(lower, strings.ToLower(p)) {
			r.log.Debug().Str("person", tracing.MaskPII(p)).Msg("识别结果不在原文中，已忽略")
			continue
		}
		span.SetAttributes(attribute.Bool("ner.found", true))
		return p, nil
	}
	span.SetAttributes(attribute.Bool("ner.found", false))
	return "", nil
}

// parsePersons 兼容模型在 JSON 外包裹代码块的情况
func parsePersons(content string) ([]string, error) {
	s := strings.TrimSpace(content)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			s = s[i : j+1]
		}
	}
	var reply personsReply
	if err := json.Unmarshal([]byte(s), &reply); err != nil {
		return nil, fmt.Errorf("ner: decode reply: %w", err)
	}
	return reply.Persons, nil
}
