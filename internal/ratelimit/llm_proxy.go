package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// RateLimitedChatModel 为 ChatModel 增加限流和重试
type RateLimitedChatModel struct {
	inner   model.ToolCallingChatModel
	limiter *TokenBucket
}

// NewRateLimitedChatModel 按 qpm 包装模型，qpm<=0 时使用 30
func NewRateLimitedChatModel(inner model.ToolCallingChatModel, qpm int, maxRetries int, retryWait time.Duration) *RateLimitedChatModel {
	if qpm <= 0 {
		qpm = 30
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryWait <= 0 {
		retryWait = time.Second
	}
	return &RateLimitedChatModel{
		inner:   inner,
		limiter: NewTokenBucket(qpm, qpm/2).WithRetryPolicy(retryWait, maxRetries),
	}
}

func (rl *RateLimitedChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	var out *schema.Message
	err := rl.limiter.RetryWithBackoff(ctx, func() error {
		var genErr error
		out, genErr = rl.inner.Generate(ctx, messages, opts...)
		return genErr
	})
	return out, err
}

func (rl *RateLimitedChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var out *schema.StreamReader[*schema.Message]
	err := rl.limiter.RetryWithBackoff(ctx, func() error {
		var streamErr error
		out, streamErr = rl.inner.Stream(ctx, messages, opts...)
		return streamErr
	})
	return out, err
}

// WithTools 绑定工具后的模型共用同一个令牌桶
func (rl *RateLimitedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound, err := rl.inner.WithTools(tools)
	if err != nil {
		return nil, err
	}
	return &RateLimitedChatModel{inner: bound, limiter: rl.limiter}, nil
}

var _ model.ToolCallingChatModel = (*RateLimitedChatModel)(nil)
