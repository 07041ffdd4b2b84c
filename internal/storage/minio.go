package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/constants"
	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/tracing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

var minioTracer = otel.Tracer("campus-ml-go/storage/minio")

// ObjectStorage 原始简历存储
type ObjectStorage interface {
	// PutOriginal 保存原始 PDF，返回对象路径
	PutOriginal(ctx context.Context, jobID string, data []byte) (string, error)
	GetOriginal(ctx context.Context, objectKey string) ([]byte, error)
	DeleteOriginal(ctx context.Context, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 对象存储实现
type MinIO struct {
	client *minio.Client
	bucket string
	log    zerolog.Logger
}

// OriginalObjectKey 任务对应的原始文件路径
func OriginalObjectKey(jobID string) string {
	return constants.OriginalObjectPrefix + jobID + ".pdf"
}

// NewMinIO 创建客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, errors.New("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, errors.New("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		bucket: cfg.BucketName,
		log:    logger.Component("minio"),
	}
	if err := m.ensureBucket(ctx, cfg.Location); err != nil {
		return nil, err
	}
	if cfg.OriginalExpireDays > 0 {
		if err := m.setExpiry(ctx, cfg.OriginalExpireDays); err != nil {
			m.log.Warn().Err(err).Msg("设置存储桶生命周期失败")
		}
	}

	m.log.Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucket(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	m.log.Info().Str("bucket", m.bucket).Msg("存储桶已创建")
	return nil
}

func (m *MinIO) setExpiry(ctx context.Context, days int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     "expire-originals",
			Status: "Enabled",
			RuleFilter: lifecycle.Filter{
				Prefix: constants.OriginalObjectPrefix,
			},
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(days),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, m.bucket, cfg)
}

func (m *MinIO) startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return minioTracer.Start(ctx, "MinIO."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("minio.bucket", m.bucket),
			attribute.String("minio.object", key),
		))
}

// PutOriginal 上传原始简历
func (m *MinIO) PutOriginal(ctx context.Context, jobID string, data []byte) (string, error) {
	key := OriginalObjectKey(jobID)
	ctx, span := m.startSpan(ctx, "PutOriginal", key)
	defer span.End()

	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: constants.PDFContentType})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, key, err)
	}
	m.log.Debug().Str("object", key).Str("etag", info.ETag).Int64("size", info.Size).Msg("原始简历已上传")
	return key, nil
}

// GetOriginal 下载原始简历
func (m *MinIO) GetOriginal(ctx context.Context, objectKey string) ([]byte, error) {
	ctx, span := m.startSpan(ctx, "GetOriginal", objectKey)
	defer span.End()

	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%s: %w", objectKey, ErrObjectNotFound)
		}
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", m.bucket, objectKey, err)
	}
	span.SetAttributes(attribute.Int("minio.size", len(data)))
	return data, nil
}

// DeleteOriginal 删除原始简历
func (m *MinIO) DeleteOriginal(ctx context.Context, objectKey string) error {
	ctx, span := m.startSpan(ctx, "DeleteOriginal", objectKey)
	defer span.End()

	if err := m.client.RemoveObject(ctx, m.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}
