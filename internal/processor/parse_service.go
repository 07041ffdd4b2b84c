// Package processor 异步简历解析：提交时归档原始文件并投递任务，消费端解析后写回任务状态
package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/parser"
	"campus-ml-go/internal/storage"
	"campus-ml-go/internal/tracing"
	"campus-ml-go/internal/types"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("campus-ml-go/internal/processor")

// DocumentParser PDF 字节到候选人信息
type DocumentParser interface {
	ParseDocument(ctx context.Context, data []byte, uri string) (*types.CandidateProfile, error)
}

// ParseService 异步解析服务
type ParseService struct {
	parser    DocumentParser
	objects   storage.ObjectStorage
	jobs      storage.JobStore
	publisher storage.MessagePublisher
	consumer  storage.MessageConsumer
	mqCfg     config.RabbitMQConfig

	newID func() (string, error)
	now   func() time.Time
	log   zerolog.Logger
}

// ServiceOption 服务配置项
type ServiceOption func(*ParseService)

// WithConsumer 设置消费者，未设置时 StartConsumer 返回 ErrConsumerDisabled
func WithConsumer(c storage.MessageConsumer) ServiceOption {
	return func(s *ParseService) { s.consumer = c }
}

// WithIDGenerator 替换任务ID生成方式
func WithIDGenerator(fn func() (string, error)) ServiceOption {
	return func(s *ParseService) { s.newID = fn }
}

// WithClock 替换时间来源
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *ParseService) { s.now = fn }
}

func newJobID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewParseService 创建服务
func NewParseService(p DocumentParser, objects storage.ObjectStorage, jobs storage.JobStore, publisher storage.MessagePublisher, mqCfg config.RabbitMQConfig, opts ...ServiceOption) *ParseService {
	s := &ParseService{
		parser:    p,
		objects:   objects,
		jobs:      jobs,
		publisher: publisher,
		mqCfg:     mqCfg,
		newID:     newJobID,
		now:       time.Now,
		log:       logger.Component("parse_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit 提交解析任务。相同文件的任务仍在缓存中时返回该任务，状态为 DUPLICATE。
func (s *ParseService) Submit(ctx context.Context, filename string, data []byte) (*types.ParseJob, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	ctx, span := tracer.Start(ctx, "ParseService.Submit")
	defer span.End()

	sum := md5.Sum(data)
	fileMD5 := hex.EncodeToString(sum[:])

	jobID, err := s.newID()
	if err != nil {
		return nil, newJobError("", "new_id", ErrJobStoreFailed, err)
	}
	span.SetAttributes(attribute.String("job.id", jobID), attribute.Int("job.bytes", len(data)))
	log := s.log.With().Str("job_id", jobID).Str("filename", filename).Logger()

	dup, err := s.claim(ctx, fileMD5, jobID, filename)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, err
	}
	if dup != nil {
		span.SetAttributes(attribute.Bool("job.duplicate", true))
		log.Info().Str("owner_job_id", dup.JobID).Msg("重复提交，返回已有任务")
		return dup, nil
	}

	key, err := s.objects.PutOriginal(ctx, jobID, data)
	if err != nil {
		s.release(ctx, fileMD5)
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, newJobError(jobID, "archive", ErrArchiveFailed, err)
	}

	job := &types.ParseJob{
		JobID:    jobID,
		Filename: filename,
		Status:   types.JobStatusQueued,
		SubmitAt: s.now().UTC(),
	}
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.release(ctx, fileMD5)
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, newJobError(jobID, "save", ErrJobStoreFailed, err)
	}

	msg := storage.ParseJobMessage{
		JobID:       jobID,
		Filename:    filename,
		ObjectKey:   key,
		FileMD5:     fileMD5,
		SubmittedAt: job.SubmitAt,
		RequestID:   RequestIDFromContext(ctx),
	}
	if err := s.publisher.PublishJSON(ctx, s.mqCfg.ParseExchange, s.mqCfg.ParseRoutingKey, msg, true); err != nil {
		s.release(ctx, fileMD5)
		s.fail(ctx, job, "任务投递失败")
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return nil, newJobError(jobID, "publish", ErrPublishFailed, err)
	}

	log.Info().Str("object_key", key).Msg("解析任务已提交")
	return job, nil
}

// claim 占用文件 md5。返回非 nil 的任务表示重复提交。
func (s *ParseService) claim(ctx context.Context, fileMD5, jobID, filename string) (*types.ParseJob, error) {
	for attempt := 0; attempt < 2; attempt++ {
		owner, claimed, err := s.jobs.ClaimFileMD5(ctx, fileMD5, jobID)
		if err != nil {
			return nil, newJobError(jobID, "dedup", ErrDedupFailed, err)
		}
		if claimed {
			return nil, nil
		}
		existing, err := s.jobs.GetJob(ctx, owner)
		if err == nil {
			return &types.ParseJob{
				JobID:    existing.JobID,
				Filename: filename,
				Status:   types.JobStatusDuplicate,
				SubmitAt: existing.SubmitAt,
			}, nil
		}
		if !errors.Is(err, storage.ErrJobNotFound) {
			return nil, newJobError(jobID, "dedup", ErrDedupFailed, err)
		}
		// 任务记录已过期，释放后重新占用
		s.release(ctx, fileMD5)
	}
	return nil, newJobError(jobID, "dedup", ErrDedupFailed, errors.New("无法占用文件MD5"))
}

func (s *ParseService) release(ctx context.Context, fileMD5 string) {
	if fileMD5 == "" {
		return
	}
	if err := s.jobs.ReleaseFileMD5(ctx, fileMD5); err != nil {
		s.log.Warn().Err(err).Str("md5", fileMD5).Msg("释放MD5记录失败")
	}
}

func (s *ParseService) fail(ctx context.Context, job *types.ParseJob, reason string) {
	finished := s.now().UTC()
	job.Status = types.JobStatusFailed
	job.Error = reason
	job.Profile = nil
	job.FinishedAt = &finished
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("job_id", job.JobID).Msg("写入失败状态出错")
	}
}

// GetJob 查询任务
func (s *ParseService) GetJob(ctx context.Context, jobID string) (*types.ParseJob, error) {
	return s.jobs.GetJob(ctx, jobID)
}

// StartConsumer 开始消费解析队列
func (s *ParseService) StartConsumer(ctx context.Context) (<-chan struct{}, error) {
	if s.consumer == nil {
		return nil, ErrConsumerDisabled
	}
	return s.consumer.StartConsumer(ctx, s.mqCfg.ParseQueue, s.mqCfg.PrefetchCount, s.mqCfg.ConsumerWorkers, s.HandleMessage)
}

// HandleMessage 处理一条解析任务消息。
// 文档无法解析时记为 FAILED 并确认消息；存储暂时不可用时重新入队。
func (s *ParseService) HandleMessage(ctx context.Context, body []byte) storage.ConsumeAction {
	var msg storage.ParseJobMessage
	if err := json.Unmarshal(body, &msg); err != nil || msg.JobID == "" {
		s.log.Error().Err(err).Str("body", tracing.TruncateString(string(body), 200)).Msg("无法解析的任务消息，已丢弃")
		return storage.ActionDiscard
	}

	ctx, span := tracer.Start(ctx, "ParseService.HandleMessage")
	defer span.End()
	span.SetAttributes(attribute.String("job.id", msg.JobID))

	log := s.log.With().Str("job_id", msg.JobID).Str("request_id", msg.RequestID).Logger()
	ctx = log.WithContext(ctx)

	job, err := s.jobs.GetJob(ctx, msg.JobID)
	switch {
	case errors.Is(err, storage.ErrJobNotFound):
		log.Warn().Msg("任务记录已过期，跳过")
		return storage.ActionAck
	case err != nil:
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		log.Warn().Err(err).Msg("读取任务失败，稍后重试")
		return storage.ActionRequeue
	}
	if job.Status == types.JobStatusDone || job.Status == types.JobStatusFailed {
		log.Info().Str("status", string(job.Status)).Msg("任务已完成，忽略重复投递")
		return storage.ActionAck
	}

	job.Status = types.JobStatusProcessing
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		log.Warn().Err(err).Msg("更新任务状态失败，稍后重试")
		return storage.ActionRequeue
	}

	data, err := s.objects.GetOriginal(ctx, msg.ObjectKey)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.fail(ctx, job, "原始文件不存在")
			s.release(ctx, msg.FileMD5)
			return storage.ActionAck
		}
		log.Warn().Err(err).Msg("下载原始文件失败，稍后重试")
		return storage.ActionRequeue
	}

	profile, err := s.parser.ParseDocument(ctx, data, msg.Filename)
	if err != nil {
		if ctx.Err() != nil && !parser.IsParseError(err) {
			log.Warn().Err(err).Msg("服务停止，任务重新入队")
			return storage.ActionRequeue
		}
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		log.Warn().Err(err).Msg("简历解析失败")
		s.fail(ctx, job, err.Error())
		s.release(ctx, msg.FileMD5)
		return storage.ActionAck
	}

	finished := s.now().UTC()
	job.Status = types.JobStatusDone
	job.Profile = profile
	job.Error = ""
	job.FinishedAt = &finished
	if err := s.jobs.SaveJob(ctx, job); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		log.Warn().Err(err).Msg("写入解析结果失败，稍后重试")
		return storage.ActionRequeue
	}

	log.Info().Int("skills", len(profile.Skills)).Msg("异步解析完成")
	return storage.ActionAck
}
