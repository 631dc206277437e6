package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/tracing"
)

const (
	// DashScope 的 OpenAI 兼容端点
	defaultOpenAICompatibleURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultOpenAICompatModel   = "qwen-turbo"
)

// OpenAICompatibleChatModel 通过 OpenAI 兼容的 chat/completions 接口调用远程模型
// (通义千问 DashScope、OpenAI、DeepSeek 等均可).
type OpenAICompatibleChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature float32
	maxTokens   int
	httpClient  *http.Client
	logger      zerolog.Logger
}

var _ model.ToolCallingChatModel = (*OpenAICompatibleChatModel)(nil)

// OpenAICompatOption 构造选项
type OpenAICompatOption func(*OpenAICompatibleChatModel)

// WithHTTPClient 替换默认 HTTP 客户端
func WithHTTPClient(c *http.Client) OpenAICompatOption {
	return func(m *OpenAICompatibleChatModel) { m.httpClient = c }
}

// WithDefaultSampling 设置默认温度与最大输出 token, 调用时的 model.Option 优先
func WithDefaultSampling(temperature float32, maxTokens int) OpenAICompatOption {
	return func(m *OpenAICompatibleChatModel) {
		m.temperature = temperature
		m.maxTokens = maxTokens
	}
}

// WithModelLogger 设置日志
func WithModelLogger(l zerolog.Logger) OpenAICompatOption {
	return func(m *OpenAICompatibleChatModel) { m.logger = l }
}

// NewOpenAICompatibleChatModel 创建远程模型客户端, apiKey 不能为空
func NewOpenAICompatibleChatModel(apiKey, modelName, apiURL string, opts ...OpenAICompatOption) (*OpenAICompatibleChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultOpenAICompatModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = defaultOpenAICompatibleURL
	}

	m := &OpenAICompatibleChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ModelName 返回实际调用的模型名
func (m *OpenAICompatibleChatModel) ModelName() string { return m.modelName }

// Generate 实现 model.BaseChatModel 接口
func (m *OpenAICompatibleChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	temp := m.temperature
	maxTokens := m.maxTokens
	modelName := m.modelName
	common := model.GetCommonOptions(&model.Options{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		Model:       &modelName,
	}, options...)

	req := chatCompletionRequest{
		Model:       *common.Model,
		Messages:    make([]chatMessage, 0, len(messages)),
		Temperature: common.Temperature,
	}
	if common.MaxTokens != nil && *common.MaxTokens > 0 {
		req.MaxTokens = common.MaxTokens
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败, status %d: %s", httpResp.StatusCode, tracing.TruncateString(string(respBody), 500))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项: %s", tracing.TruncateString(string(respBody), 500))
	}

	choice := parsed.Choices[0]
	content := ""
	if choice.Message.Content != nil {
		content = *choice.Message.Content
	}
	m.logger.Debug().
		Str("model", parsed.Model).
		Int("prompt_tokens", parsed.Usage.PromptTokens).
		Int("completion_tokens", parsed.Usage.CompletionTokens).
		Str("finish_reason", choice.FinishReason).
		Msg("模型调用完成")

	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: choice.FinishReason,
			Usage: &schema.TokenUsage{
				PromptTokens:     parsed.Usage.PromptTokens,
				CompletionTokens: parsed.Usage.CompletionTokens,
				TotalTokens:      parsed.Usage.PromptTokens + parsed.Usage.CompletionTokens,
			},
		},
	}, nil
}

// Stream 未实现, 流水线只使用 Generate
func (m *OpenAICompatibleChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAICompatibleChatModel 不支持 Stream")
}

// WithTools 流水线不使用工具调用, 绑定工具直接报错
func (m *OpenAICompatibleChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	if len(tools) == 0 {
		return m, nil
	}
	return nil, fmt.Errorf("OpenAICompatibleChatModel 不支持工具调用")
}
