// Package ratelimit 令牌桶限流，用于约束对外部模型接口的调用频率
package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"campus-ml-go/internal/logger"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	mu         sync.Mutex
	rate       float64 // 每秒生成的令牌数
	capacity   float64
	tokens     float64
	lastRefill time.Time

	retryWait  time.Duration
	maxRetries int

	now func() time.Time
}

// NewTokenBucket 按每分钟请求数创建限流器，capacity<=0 时取 qpm 的一半
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if qpm <= 0 {
		qpm = 60
	}
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}
	tb := &TokenBucket{
		rate:       float64(qpm) / 60.0,
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		retryWait:  time.Second,
		maxRetries: 3,
		now:        time.Now,
	}
	tb.lastRefill = tb.now()
	return tb
}

// WithRetryPolicy 设置重试等待基数和最大重试次数
func (tb *TokenBucket) WithRetryPolicy(wait time.Duration, maxRetries int) *TokenBucket {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.retryWait = wait
	tb.maxRetries = maxRetries
	return tb
}

// refill 调用方需持有锁
func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	tb.lastRefill = now
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 尝试取一个令牌，不阻塞
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 阻塞直到取得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		wait := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 取令牌后执行 fn，可重试错误按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	tb.mu.Lock()
	maxRetries, base := tb.maxRetries, tb.retryWait
	tb.mu.Unlock()

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if !IsRetryable(err) || attempt >= maxRetries {
			return err
		}

		backoff := base * time.Duration(1<<uint(attempt))
		logger.Ctx(ctx).Warn().Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("模型调用失败，退避后重试")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

var retryableMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"EOF",
	"connection refused",
	"429",
	"rate limit",
	"no such host",
	"服务器繁忙",
	"请求超过限额",
	"QPS限制",
}

// IsRetryable 根据错误信息判断是否值得重试，ctx 取消不重试
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
