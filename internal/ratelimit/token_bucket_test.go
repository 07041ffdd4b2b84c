package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBucket(qpm, capacity int) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	tb := NewTokenBucket(qpm, capacity)
	tb.now = clock.Now
	tb.lastRefill = clock.Now()
	return tb, clock
}

func TestTokenBucketAllow(t *testing.T) {
	tb, clock := newTestBucket(60, 2)

	assert.True(t, tb.Allow(), "初始桶是满的")
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "令牌耗尽后应拒绝")

	clock.Advance(time.Second)
	assert.True(t, tb.Allow(), "每秒补充一个令牌")
	assert.False(t, tb.Allow())

	clock.Advance(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "令牌数不超过容量")
}

func TestTokenBucketDefaultCapacity(t *testing.T) {
	tb := NewTokenBucket(1, 0)
	assert.Equal(t, 1.0, tb.capacity, "容量至少为1")

	tb = NewTokenBucket(120, 0)
	assert.Equal(t, 60.0, tb.capacity)
}

func TestTokenBucketWaitCanceled(t *testing.T) {
	tb, _ := newTestBucket(1, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled, "ctx 取消后应立即返回")
}

func TestRetryWithBackoff(t *testing.T) {
	tb := NewTokenBucket(6000, 100).WithRetryPolicy(time.Millisecond, 2)

	calls := 0
	err := tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("429 Too Many Requests")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls, "可重试错误应重试直到成功")

	calls = 0
	err = tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("invalid api key")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls, "不可重试错误只调用一次")

	calls = 0
	err = tb.RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("connection reset by peer")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, calls, "最多重试 maxRetries 次")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("服务器繁忙，请稍后再试")))
	assert.False(t, IsRetryable(errors.New("bad request")))
}
