package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/tracing"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("resume-parser-go/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

var _ ResponseCache = (*Redis)(nil)

// NewRedisAdapter creates a new Redis client connection
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
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

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) startSpan(ctx context.Context, name, op, key string) (context.Context, trace.Span) {
	ctx, span := redisTracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.database", strconv.Itoa(r.config.DB)),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", op),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)
	return ctx, span
}

// Get 读取模型响应缓存
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := r.startSpan(ctx, "Redis.GetResponse", "GET", key)
	defer span.End()

	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return "", false, nil
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return "", false, fmt.Errorf("读取Redis缓存失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return val, true, nil
}

// Set 写入模型响应缓存
func (r *Redis) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	ctx, span := r.startSpan(ctx, "Redis.SetResponse", "SET", key)
	defer span.End()

	if err := r.Client.Set(ctx, key, value, ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入Redis缓存失败: %w", err)
	}
	return nil
}
