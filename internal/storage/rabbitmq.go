package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-ml-go/internal/config"
	"campus-ml-go/internal/logger"
	"campus-ml-go/internal/tracing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConsumeAction 消息处理后的确认方式
type ConsumeAction int

const (
	// ActionAck 处理完成或不可重试的失败
	ActionAck ConsumeAction = iota
	// ActionRequeue 临时错误，拒绝并重新入队
	ActionRequeue
	// ActionDiscard 拒绝且不重新入队
	ActionDiscard
)

// DeliveryHandler 消息处理函数，ctx 携带从消息头恢复的链路信息
type DeliveryHandler func(ctx context.Context, body []byte) ConsumeAction

// MessagePublisher 消息发布
type MessagePublisher interface {
	PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error
}

// MessageConsumer 消息消费
type MessageConsumer interface {
	// StartConsumer 启动 workers 个协程消费队列，ctx 结束后停止，返回的通道在全部协程退出后关闭
	StartConsumer(ctx context.Context, queueName string, prefetchCount, workers int, handler DeliveryHandler) (<-chan struct{}, error)
}

var (
	_ MessagePublisher = (*RabbitMQ)(nil)
	_ MessageConsumer  = (*RabbitMQ)(nil)
)

var mqTracer = otel.Tracer("campus-ml-go/storage/rabbitmq")

// RabbitMQ 消息队列实现
type RabbitMQ struct {
	conn *amqp.Connection
	cfg  *config.RabbitMQConfig
	log  zerolog.Logger

	mu        sync.Mutex
	pubCh     *amqp.Channel
	exchanges map[string]bool
	queues    map[string]bool
	bindings  map[string]bool
}

// NewRabbitMQ 建立连接
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, errors.New("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, errors.New("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:      conn,
		cfg:       cfg,
		log:       logger.Component("rabbitmq"),
		exchanges: make(map[string]bool),
		queues:    make(map[string]bool),
		bindings:  make(map[string]bool),
	}
	if _, err := mq.publishChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	mq.log.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

// publishChannel 返回发布用通道，已关闭时重新创建。调用方无需持有锁。
func (r *RabbitMQ) publishChannel() (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pubCh != nil && !r.pubCh.IsClosed() {
		return r.pubCh, nil
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("创建RabbitMQ通道失败: %w", err)
	}
	r.pubCh = ch
	return ch, nil
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	if r.pubCh != nil {
		_ = r.pubCh.Close()
	}
	r.mu.Unlock()
	return r.conn.Close()
}

// SetupParseTopology 声明解析任务的交换机、队列和绑定
func (r *RabbitMQ) SetupParseTopology() error {
	if err := r.EnsureExchange(r.cfg.ParseExchange, amqp.ExchangeDirect, true); err != nil {
		return err
	}
	if err := r.EnsureQueue(r.cfg.ParseQueue, true); err != nil {
		return err
	}
	return r.BindQueue(r.cfg.ParseQueue, r.cfg.ParseExchange, r.cfg.ParseRoutingKey)
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return errors.New("exchange名称不能为空")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}
	r.mu.Lock()
	done := r.exchanges[exchangeName]
	r.mu.Unlock()
	if done {
		return nil
	}

	ch, err := r.publishChannel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}

	r.mu.Lock()
	r.exchanges[exchangeName] = true
	r.mu.Unlock()
	r.log.Info().Str("exchange", exchangeName).Str("type", exchangeType).Msg("已确保exchange存在")
	return nil
}

// EnsureQueue 确保队列存在
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	r.mu.Lock()
	done := r.queues[queueName]
	r.mu.Unlock()
	if done {
		return nil
	}

	ch, err := r.publishChannel()
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}

	r.mu.Lock()
	r.queues[queueName] = true
	r.mu.Unlock()
	r.log.Info().Str("queue", queueName).Msg("已确保队列存在")
	return nil
}

// BindQueue 绑定队列到exchange
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := exchangeName + ":" + queueName + ":" + routingKey
	r.mu.Lock()
	done := r.bindings[bindingKey]
	r.mu.Unlock()
	if done {
		return nil
	}

	ch, err := r.publishChannel()
	if err != nil {
		return err
	}
	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("绑定队列到exchange失败: %w", err)
	}

	r.mu.Lock()
	r.bindings[bindingKey] = true
	r.mu.Unlock()
	r.log.Info().Str("queue", queueName).Str("exchange", exchangeName).Str("routing_key", routingKey).Msg("已绑定队列")
	return nil
}

// PublishJSON 序列化后发布，链路上下文写入消息头
func (r *RabbitMQ) PublishJSON(ctx context.Context, exchangeName, routingKey string, data interface{}, persistent bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	ctx, span := mqTracer.Start(ctx, "RabbitMQ.Publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", exchangeName),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
			attribute.Int("messaging.message_payload_size_bytes", len(body)),
		))
	defer span.End()

	ch, err := r.publishChannel()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return err
	}

	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier(headers))

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	r.mu.Lock()
	err = ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		Headers:      headers,
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
	})
	r.mu.Unlock()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRabbitMQ)
		return fmt.Errorf("发布消息失败: %w", err)
	}
	return nil
}

// StartConsumer 启动消费者
func (r *RabbitMQ) StartConsumer(ctx context.Context, queueName string, prefetchCount, workers int, handler DeliveryHandler) (<-chan struct{}, error) {
	if workers <= 0 {
		workers = 1
	}
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("创建消费通道失败: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("设置QoS失败: %w", err)
	}
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("注册消费者失败: %w", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						r.log.Warn().Int("worker", worker).Msg("RabbitMQ投递通道已关闭")
						return
					}
					r.handleDelivery(ctx, d, handler)
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		_ = ch.Close()
		r.log.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")
		close(done)
	}()

	r.log.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Int("workers", workers).Msg("RabbitMQ消费者已启动")
	return done, nil
}

func (r *RabbitMQ) handleDelivery(ctx context.Context, d amqp.Delivery, handler DeliveryHandler) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, tableCarrier(d.Headers))
	ctx, span := mqTracer.Start(ctx, "RabbitMQ.Consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", d.Exchange),
			attribute.Bool("messaging.rabbitmq.redelivered", d.Redelivered),
		))
	defer span.End()

	msgID := d.MessageId
	if msgID == "" {
		msgID = fmt.Sprintf("tag-%d", d.DeliveryTag)
	}

	switch handler(ctx, d.Body) {
	case ActionAck:
		if err := d.Ack(false); err != nil {
			r.log.Error().Err(err).Str("message_id", msgID).Msg("确认消息失败")
		}
	case ActionRequeue:
		tracing.RecordRabbitMQNack(span, msgID, true, "transient error")
		if err := d.Nack(false, true); err != nil {
			r.log.Error().Err(err).Str("message_id", msgID).Msg("拒绝消息失败")
		}
	default:
		tracing.RecordRabbitMQNack(span, msgID, false, "discarded")
		if err := d.Nack(false, false); err != nil {
			r.log.Error().Err(err).Str("message_id", msgID).Msg("拒绝消息失败")
		}
	}
}

// tableCarrier 让 amqp 消息头满足 TextMapCarrier
type tableCarrier amqp.Table

func (c tableCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c tableCarrier) Set(key, value string) { c[key] = value }

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
