package ratelimit

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// RateLimitedLLMModel 为模型调用增加限流、单次超时与重试的代理
type RateLimitedLLMModel struct {
	original    model.ToolCallingChatModel
	modelName   string
	rateLimiter *TokenBucket
	retry       RetryPolicy
	callTimeout time.Duration
	logger      zerolog.Logger
}

var _ model.ToolCallingChatModel = (*RateLimitedLLMModel)(nil)

// NewRateLimitedLLMModel 创建限流代理, 桶容量为QPM的一半以允许少量突发
func NewRateLimitedLLMModel(original model.ToolCallingChatModel, qpm int) *RateLimitedLLMModel {
	return &RateLimitedLLMModel{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
		retry:       DefaultRetryPolicy,
		callTimeout: 60 * time.Second,
		logger:      zerolog.Nop(),
	}
}

// WithRetryPolicy 设置重试策略
func (rl *RateLimitedLLMModel) WithRetryPolicy(waitTime time.Duration, maxRetries int) *RateLimitedLLMModel {
	rl.retry = RetryPolicy{MaxRetries: maxRetries, BaseWait: waitTime}
	return rl
}

// WithCallTimeout 设置单次调用超时, <=0 表示不限制
func (rl *RateLimitedLLMModel) WithCallTimeout(d time.Duration) *RateLimitedLLMModel {
	rl.callTimeout = d
	return rl
}

// WithLogger 设置重试日志
func (rl *RateLimitedLLMModel) WithLogger(logger zerolog.Logger, modelName string) *RateLimitedLLMModel {
	rl.logger = logger
	rl.modelName = modelName
	return rl
}

func (rl *RateLimitedLLMModel) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	return rl.retry.Do(ctx, func(ctx context.Context) error {
		if err := rl.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		if rl.callTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, rl.callTimeout)
			defer cancel()
		}
		return fn(ctx)
	}, func(n int, err error) {
		rl.logger.Warn().Err(err).Str("model", rl.modelName).Int("retry", n).Msg("模型调用失败, 准备重试")
	})
}

// Generate 代理Generate方法
func (rl *RateLimitedLLMModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	var response *schema.Message
	err := rl.attempt(ctx, func(ctx context.Context) error {
		var genErr error
		response, genErr = rl.original.Generate(ctx, messages, options...)
		return genErr
	})
	return response, err
}

// Stream 代理Stream方法. 超时只约束建立流的过程.
func (rl *RateLimitedLLMModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	var stream *schema.StreamReader[*schema.Message]
	err := rl.retry.Do(ctx, func(ctx context.Context) error {
		if err := rl.rateLimiter.Wait(ctx); err != nil {
			return err
		}
		var streamErr error
		stream, streamErr = rl.original.Stream(ctx, messages, options...)
		return streamErr
	}, nil)
	return stream, err
}

// WithTools 代理WithTools方法, 共享同一个令牌桶
func (rl *RateLimitedLLMModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	newModel, err := rl.original.WithTools(tools)
	if err != nil {
		return nil, err
	}
	clone := *rl
	clone.original = newModel
	return &clone, nil
}

// NewLLMWithRateLimit 按模型名从QPM映射中取限额(取90%作为安全值), 否则使用 customQPM, 都没有时默认30
func NewLLMWithRateLimit(original model.ToolCallingChatModel, modelName string, qpmLimits map[string]int, customQPM int, maxRetries int, retryWaitTime time.Duration) *RateLimitedLLMModel {
	qpm := customQPM
	if modelQPM, ok := qpmLimits[modelName]; ok && modelQPM > 0 {
		qpm = int(float64(modelQPM) * 0.9)
	}
	if qpm <= 0 {
		qpm = 30
	}
	if retryWaitTime <= 0 {
		retryWaitTime = DefaultRetryPolicy.BaseWait
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return NewRateLimitedLLMModel(original, qpm).WithRetryPolicy(retryWaitTime, maxRetries)
}
