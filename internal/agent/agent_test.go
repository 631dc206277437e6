package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/storage"
)

func TestOpenAICompatibleChatModelGenerate(t *testing.T) {
	var captured chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &captured))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","model":"qwen-plus","choices":[{"index":0,"message":{"role":"assistant","content":"{\"ok\":true}"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	m, err := NewOpenAICompatibleChatModel("sk-test", "qwen-plus", srv.URL, WithDefaultSampling(0.1, 256))
	require.NoError(t, err)

	resp, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hello"),
	}, model.WithTemperature(0))
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, schema.Assistant, resp.Role)
	assert.Equal(t, 13, resp.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "qwen-plus", captured.Model)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, float32(0), *captured.Temperature, "调用选项应覆盖默认温度")
	require.NotNil(t, captured.MaxTokens)
	assert.Equal(t, 256, *captured.MaxTokens)
}

func TestOpenAICompatibleChatModelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	m, err := NewOpenAICompatibleChatModel("sk-test", "", srv.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("x")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestOpenAICompatibleChatModelRequiresKey(t *testing.T) {
	_, err := NewOpenAICompatibleChatModel("  ", "m", "")
	assert.Error(t, err)
}

type fakeLangchainModel struct {
	lastMessages []llms.MessageContent
	reply        string
	err          error
}

func (f *fakeLangchainModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeLangchainModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestOllamaChatModelGenerate(t *testing.T) {
	fake := &fakeLangchainModel{reply: `{"multiple_resumes":false,"resume_count":1}`}
	m := newOllamaChatModel(fake, "llama3.1", 0, 0)

	resp, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("doc"),
	})
	require.NoError(t, err)
	assert.Equal(t, fake.reply, resp.Content)

	require.Len(t, fake.lastMessages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.lastMessages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.lastMessages[1].Role)
}

func TestOllamaChatModelError(t *testing.T) {
	m := newOllamaChatModel(&fakeLangchainModel{err: errors.New("connection refused")}, "llama3.1", 0, 0)
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("doc")})
	assert.Error(t, err)
}

func TestCachedChatModel(t *testing.T) {
	ctx := context.Background()
	inner := NewMockChatModel(`{"name":"A"}`, `{"name":"B"}`)
	cache := storage.NewMemoryCache(time.Minute)
	m := NewCachedChatModel(inner, cache, "qwen-plus", time.Minute, zerolog.Nop())

	msgs := []*schema.Message{schema.UserMessage("same prompt")}
	first, err := m.Generate(ctx, msgs)
	require.NoError(t, err)
	second, err := m.Generate(ctx, msgs)
	require.NoError(t, err)

	assert.Equal(t, `{"name":"A"}`, first.Content)
	assert.Equal(t, first.Content, second.Content, "相同提示应命中缓存")
	assert.Equal(t, 1, inner.Calls())

	other, err := m.Generate(ctx, []*schema.Message{schema.UserMessage("different")})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"B"}`, other.Content)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedChatModelDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := NewMockChatModelSequential(MockResponse{Error: errors.New("timeout")}, MockResponse{Content: "ok"})
	m := NewCachedChatModel(inner, storage.NewMemoryCache(time.Minute), "m", time.Minute, zerolog.Nop())

	msgs := []*schema.Message{schema.UserMessage("p")}
	_, err := m.Generate(ctx, msgs)
	require.Error(t, err)
	resp, err := m.Generate(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
}

func TestMockChatModel(t *testing.T) {
	m := NewMockChatModel("a", "b")
	ctx := context.Background()

	r1, _ := m.Generate(ctx, []*schema.Message{schema.UserMessage("1")})
	r2, _ := m.Generate(ctx, []*schema.Message{schema.UserMessage("2")})
	r3, _ := m.Generate(ctx, []*schema.Message{schema.UserMessage("3")})

	assert.Equal(t, "a", r1.Content)
	assert.Equal(t, "b", r2.Content)
	assert.Equal(t, "b", r3.Content, "用尽后重复最后一个响应")
	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, "3", m.LastUserContent())
}

func TestFactoryForTask(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM = config.LLMConfig{
		Provider:   config.ProviderOpenAICompatible,
		APIKey:     "sk-test",
		Model:      "qwen-turbo",
		TaskModels: map[string]string{config.TaskExtract: "qwen-max"},
		MaxRetries: 1,
	}
	cfg.Cache.Type = "memory"

	f := NewFactory(cfg, storage.NewMemoryCache(time.Minute), zerolog.Nop())
	m, err := f.ForTask(config.TaskExtract)
	require.NoError(t, err)
	_, isCached := m.(*CachedChatModel)
	assert.True(t, isCached)

	noCache := NewFactory(cfg, nil, zerolog.Nop())
	m, err = noCache.ForTask(config.TaskDetect)
	require.NoError(t, err)
	_, isCached = m.(*CachedChatModel)
	assert.False(t, isCached)
}

func TestFactoryUnknownProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM = config.LLMConfig{Provider: "bogus", Model: "m"}
	_, err := NewFactory(cfg, nil, zerolog.Nop()).ForTask(config.TaskDetect)
	assert.Error(t, err)
}

func TestFactoryMissingKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM = config.LLMConfig{Provider: config.ProviderOpenAICompatible, Model: "m"}
	_, err := NewFactory(cfg, nil, zerolog.Nop()).ForTask(config.TaskDetect)
	assert.Error(t, err)
}
