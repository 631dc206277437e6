package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
)

// Storage 存储管理器，聚合按配置启用的外部依赖. 未启用的组件为 nil.
type Storage struct {
	// 模型响应缓存, cache.type=none 时为 nil
	Cache ResponseCache

	// 键值存储
	Redis *Redis

	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	logger zerolog.Logger
}

// NewStorage 创建存储管理器. 已启用的组件初始化失败即返回错误.
func NewStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	s := &Storage{logger: logger}
	var err error

	switch cfg.Cache.Type {
	case "memory":
		s.Cache = NewMemoryCache(cfg.Cache.TTLDuration())
	case "redis":
		s.Redis, err = NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("初始化Redis失败: %w", err)
		}
		s.Cache = s.Redis
	}

	if cfg.MinIO.Enabled {
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化MinIO失败: %w", err)
		}
	}

	if cfg.RabbitMQ.Enabled {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化RabbitMQ失败: %w", err)
		}
	}

	logger.Info().
		Str("cache", cfg.Cache.Type).
		Bool("minio", s.MinIO != nil).
		Bool("rabbitmq", s.RabbitMQ != nil).
		Msg("存储组件初始化完成")
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
