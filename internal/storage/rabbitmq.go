package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/types"
)

// RabbitMQ 发布处理事件
type RabbitMQ struct {
	conn         *amqp.Connection
	ch           *amqp.Channel
	publishMutex sync.Mutex // amqp.Channel 不支持并发发布
	cfg          *config.RabbitMQConfig
	logger       zerolog.Logger
}

// NewRabbitMQ 连接RabbitMQ并声明事件交换机
func NewRabbitMQ(cfg *config.RabbitMQConfig, logger zerolog.Logger) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("创建RabbitMQ通道失败: %w", err)
	}

	mq := &RabbitMQ{
		conn:   conn,
		ch:     ch,
		cfg:    cfg,
		logger: logger.With().Str("component", "rabbitmq").Logger(),
	}
	if err := mq.EnsureExchange(cfg.Exchange, amqp.ExchangeTopic, true); err != nil {
		_ = mq.Close()
		return nil, err
	}
	return mq, nil
}

// EnsureExchange 确保exchange存在
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}

	err := r.ch.ExchangeDeclare(
		exchangeName, // exchange名称
		exchangeType, // exchange类型
		durable,      // 持久化
		false,        // 自动删除
		false,        // 内部专用
		false,        // 非阻塞
		nil,          // 参数
	)
	if err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	r.logger.Debug().Str("exchange", exchangeName).Msg("已确保exchange存在")
	return nil
}

// PublishJSON 发布持久化的JSON消息
func (r *RabbitMQ) PublishJSON(ctx context.Context, routingKey, messageID string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("JSON序列化失败: %w", err)
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	return r.ch.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		routingKey,
		false, // 强制
		false, // 立即
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

// PublishFileProcessed 发布单文件处理完成事件
func (r *RabbitMQ) PublishFileProcessed(ctx context.Context, evt types.FileProcessedEvent) error {
	return r.PublishJSON(ctx, r.cfg.FileProcessedRouteKey, evt.EventID, evt)
}

// PublishBatchCompleted 发布批处理完成事件
func (r *RabbitMQ) PublishBatchCompleted(ctx context.Context, evt types.BatchCompletedEvent) error {
	return r.PublishJSON(ctx, r.cfg.BatchCompletedRouteKey, evt.EventID, evt)
}

// Close 关闭通道与连接
func (r *RabbitMQ) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
