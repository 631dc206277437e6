package agent

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/storage"
	"resume-parser-go/pkg/ratelimit"
)

// Factory 按任务构建模型客户端: 提供方客户端 -> 限流重试 -> 可选响应缓存
type Factory struct {
	cfg       config.LLMConfig
	qpmLimits map[string]int
	cache     storage.ResponseCache
	cacheTTL  time.Duration
	logger    zerolog.Logger
}

// NewFactory 创建模型工厂, cache 可为 nil
func NewFactory(cfg *config.Config, cache storage.ResponseCache, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:       cfg.LLM,
		qpmLimits: cfg.ModelQPMLimits,
		cache:     cache,
		cacheTTL:  cfg.Cache.TTLDuration(),
		logger:    logger,
	}
}

// ForTask 返回指定任务使用的模型
func (f *Factory) ForTask(task string) (model.ToolCallingChatModel, error) {
	modelName := f.cfg.ModelFor(task)
	// 检测与抽取都要求JSON输出, 本地模型统一开启JSON模式; Markdown批量抽取返回数组, 不开启
	jsonMode := task != config.TaskMarkdown

	base, err := f.newProviderModel(modelName, jsonMode)
	if err != nil {
		return nil, fmt.Errorf("创建 %s 任务模型失败: %w", task, err)
	}

	var m model.ToolCallingChatModel = ratelimit.NewLLMWithRateLimit(
		base, modelName, f.qpmLimits, f.cfg.QPM, f.cfg.MaxRetries, f.cfg.RetryWaitDuration(),
	).WithCallTimeout(f.cfg.CallTimeout()).WithLogger(f.logger, modelName)

	if f.cache != nil {
		m = NewCachedChatModel(m, f.cache, modelName, f.cacheTTL, f.logger)
	}
	f.logger.Debug().Str("task", task).Str("model", modelName).Str("provider", f.cfg.Provider).Msg("模型已就绪")
	return m, nil
}

func (f *Factory) newProviderModel(modelName string, jsonMode bool) (model.ToolCallingChatModel, error) {
	switch f.cfg.Provider {
	case config.ProviderOllama:
		return NewOllamaChatModel(modelName, f.cfg.APIURL, f.cfg.Temperature, f.cfg.MaxTokens, jsonMode)
	case config.ProviderOpenAICompatible, "":
		return NewOpenAICompatibleChatModel(f.cfg.APIKey, modelName, f.cfg.APIURL,
			WithDefaultSampling(float32(f.cfg.Temperature), f.cfg.MaxTokens),
			WithModelLogger(f.logger),
		)
	default:
		return nil, fmt.Errorf("未知的模型提供方: %s", f.cfg.Provider)
	}
}
