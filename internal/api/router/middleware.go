package router

import (
	"context"
	"crypto/subtle"
	"time"

	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/processor"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"
)

// APIKeyHeader 鉴权请求头
const APIKeyHeader = "X-API-Key"

// RequestID 读取或生成请求ID，写回响应头并放入日志上下文
func RequestID(header string) app.HandlerFunc {
	if header == "" {
		header = "X-Request-ID"
	}
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(header))
		if id == "" {
			id = uuid.NewString()
		}
		c.Response.Header.Set(header, id)

		l := logger.Logger.With().Str("request_id", id).Logger()
		ctx = l.WithContext(ctx)
		ctx = processor.ContextWithRequestID(ctx, id)
		c.Next(ctx)
	}
}

// AccessLog 记录请求方法、路径、状态码和耗时
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		logger.Ctx(ctx).Info().
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", c.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// APIKeyAuth 校验 X-API-Key，apiKey 为空时不启用
func APIKeyAuth(apiKey string) app.HandlerFunc {
	if apiKey == "" {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "invalid or missing API key"})
		}),
	)
}
