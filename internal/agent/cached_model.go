package agent

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/storage"
)

// CachedChatModel 以 (模型名, 消息内容) 为键缓存 Generate 结果.
// 缓存读写失败只记录日志, 不影响调用.
type CachedChatModel struct {
	delegate  model.ToolCallingChatModel
	cache     storage.ResponseCache
	modelName string
	ttl       time.Duration
	logger    zerolog.Logger
}

var _ model.ToolCallingChatModel = (*CachedChatModel)(nil)

// NewCachedChatModel 包装 delegate
func NewCachedChatModel(delegate model.ToolCallingChatModel, cache storage.ResponseCache, modelName string, ttl time.Duration, logger zerolog.Logger) *CachedChatModel {
	return &CachedChatModel{delegate: delegate, cache: cache, modelName: modelName, ttl: ttl, logger: logger}
}

func promptKey(messages []*schema.Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m == nil {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteByte('\x1f')
		b.WriteString(m.Content)
		b.WriteByte('\x1e')
	}
	return b.String()
}

// Generate 命中缓存时直接返回, 否则调用 delegate 并写回缓存
func (c *CachedChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	key := storage.ResponseCacheKey(c.modelName, promptKey(messages))

	if cached, found, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn().Err(err).Msg("读取模型响应缓存失败")
	} else if found {
		c.logger.Debug().Str("model", c.modelName).Msg("模型响应命中缓存")
		return schema.AssistantMessage(cached, nil), nil
	}

	resp, err := c.delegate.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	if resp != nil && strings.TrimSpace(resp.Content) != "" {
		if err := c.cache.Set(ctx, key, resp.Content, c.ttl); err != nil {
			c.logger.Warn().Err(err).Msg("写入模型响应缓存失败")
		}
	}
	return resp, nil
}

// Stream 不经过缓存
func (c *CachedChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return c.delegate.Stream(ctx, messages, opts...)
}

// WithTools 代理WithTools方法
func (c *CachedChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	inner, err := c.delegate.WithTools(tools)
	if err != nil {
		return nil, err
	}
	clone := *c
	clone.delegate = inner
	return &clone, nil
}
