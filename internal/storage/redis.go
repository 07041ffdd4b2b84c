package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/constants"
	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/tracing"
	"campus-ml-go/internal/types"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrJobNotFound 任务不存在或已过期
var ErrJobNotFound = errors.New("parse job not found")

var redisTracer = otel.Tracer("campus-ml-go/storage/redis")

// JobStore 解析任务状态存储
type JobStore interface {
	SaveJob(ctx context.Context, job *types.ParseJob) error
	GetJob(ctx context.Context, jobID string) (*types.ParseJob, error)
	// ClaimFileMD5 记录 md5 对应的任务。已被其他任务占用时返回该任务ID且 claimed 为 false。
	ClaimFileMD5(ctx context.Context, md5Hex, jobID string) (ownerJobID string, claimed bool, err error)
	ReleaseFileMD5(ctx context.Context, md5Hex string) error
}

var _ JobStore = (*Redis)(nil)

// Redis 任务状态的 Redis 实现
type Redis struct {
	Client *redis.Client
	cfg    *config.RedisConfig
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisAdapter 创建连接并检查可用性
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, errors.New("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisWithClient(client, cfg), nil
}

// NewRedisWithClient 使用已创建的客户端
func NewRedisWithClient(client *redis.Client, cfg *config.RedisConfig) *Redis {
	if cfg == nil {
		cfg = &config.RedisConfig{}
	}
	return &Redis{
		Client: client,
		cfg:    cfg,
		ttl:    config.GetDuration(cfg.ResultTTL, constants.DefaultResultTTL),
		log:    logger.Component("redis"),
	}
}

// Close 关闭连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping 检查连接
func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// ResultTTL 任务记录保留时间
func (r *Redis) ResultTTL() time.Duration { return r.ttl }

func jobKey(jobID string) string { return fmt.Sprintf(constants.KeyParseJob, jobID) }

func md5Key(md5Hex string) string { return fmt.Sprintf(constants.KeyFileMD5ToJob, md5Hex) }

func (r *Redis) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return redisTracer.Start(ctx, "Redis."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.DBSystemRedis,
			attribute.String("db.redis.database", strconv.Itoa(r.cfg.DB)),
			attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
		))
}

// SaveJob 覆盖写入任务记录并刷新过期时间
func (r *Redis) SaveJob(ctx context.Context, job *types.ParseJob) error {
	if job == nil || job.JobID == "" {
		return errors.New("job id is required")
	}
	key := jobKey(job.JobID)
	ctx, span := r.startSpan(ctx, "SaveJob", key)
	defer span.End()
	span.SetAttributes(attribute.String("job.status", string(job.Status)))

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化任务失败: %w", err)
	}
	if err := r.Client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("保存任务 %s 失败: %w", job.JobID, err)
	}
	return nil
}

// GetJob 读取任务记录
func (r *Redis) GetJob(ctx context.Context, jobID string) (*types.ParseJob, error) {
	key := jobKey(jobID)
	ctx, span := r.startSpan(ctx, "GetJob", key)
	defer span.End()

	raw, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("读取任务 %s 失败: %w", jobID, err)
	}

	var job types.ParseJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("反序列化任务 %s 失败: %w", jobID, err)
	}
	return &job, nil
}

// ClaimFileMD5 用 SETNX 原子地占用 md5
func (r *Redis) ClaimFileMD5(ctx context.Context, md5Hex, jobID string) (string, bool, error) {
	key := md5Key(md5Hex)
	ctx, span := r.startSpan(ctx, "ClaimFileMD5", key)
	defer span.End()

	ok, err := r.Client.SetNX(ctx, key, jobID, r.ttl).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", false, fmt.Errorf("执行MD5去重失败: %w", err)
	}
	if ok {
		span.SetAttributes(attribute.Bool("already_exists", false))
		return jobID, true, nil
	}

	owner, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// 占用记录恰好过期，重试一次
		ok, err = r.Client.SetNX(ctx, key, jobID, r.ttl).Result()
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return "", false, fmt.Errorf("执行MD5去重失败: %w", err)
		}
		if ok {
			return jobID, true, nil
		}
		owner, err = r.Client.Get(ctx, key).Result()
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", false, fmt.Errorf("读取MD5占用记录失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("already_exists", true))
	r.log.Info().Str("md5", md5Hex).Str("owner_job_id", owner).Msg("检测到重复提交的文件")
	return owner, false, nil
}

// ReleaseFileMD5 删除 md5 占用记录，任务失败后允许重新提交
func (r *Redis) ReleaseFileMD5(ctx context.Context, md5Hex string) error {
	key := md5Key(md5Hex)
	ctx, span := r.startSpan(ctx, "ReleaseFileMD5", key)
	defer span.End()

	if err := r.Client.Del(ctx, key).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("删除MD5记录失败: %w", err)
	}
	return nil
}
