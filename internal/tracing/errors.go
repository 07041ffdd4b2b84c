package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType span 上 error.type 属性的取值
type ErrorType string

const (
	ErrorTypeParse       ErrorType = "parse"
	ErrorTypeTimeout     ErrorType = "timeout"
	ErrorTypeLLM         ErrorType = "llm"
	ErrorTypeRedis       ErrorType = "redis"
	ErrorTypeRabbitMQ    ErrorType = "rabbitmq"
	ErrorTypeObjectStore ErrorType = "object_store"
)

// RecordError 把错误写入 span 并将状态置为 Error。span 或 err 为 nil 时什么也不做。
func RecordError(span trace.Span, err error, errorType ErrorType, attrs ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}
	msg := TruncateString(err.Error(), DefaultMaxLength)
	span.RecordError(err)
	span.SetAttributes(append([]attribute.KeyValue{
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", msg),
	}, attrs...)...)
	span.SetStatus(codes.Error, msg)
}

// RecordRabbitMQNack 标记解析任务消息被 nack，requeue 表示是否放回队列
func RecordRabbitMQNack(span trace.Span, jobID string, requeue bool, reason string) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.String("error.type", string(ErrorTypeRabbitMQ)),
		attribute.String("messaging.message_id", jobID),
		attribute.Bool("messaging.rabbitmq.requeue", requeue),
	)
	span.SetStatus(codes.Error, "nack: "+reason)
}
