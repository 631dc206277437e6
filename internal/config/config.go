package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLM 提供方
const (
	ProviderOpenAICompatible = "openai_compatible"
	ProviderOllama           = "ollama"
)

// LLM 任务名, 用于 task_models 中按任务选择模型
const (
	TaskDetect   = "detect"
	TaskSplit    = "split"
	TaskExtract  = "extract"
	TaskMarkdown = "markdown"
)

// 汇总数据来源
const (
	AggregateSourceRecords  = "records"
	AggregateSourceMarkdown = "markdown"
)

// LLMConfig 语言模型调用配置
type LLMConfig struct {
	Provider      string            `yaml:"provider" validate:"oneof=openai_compatible ollama"`
	APIKey        string            `yaml:"api_key" validate:"required_if=Provider openai_compatible"`
	APIURL        string            `yaml:"api_url" validate:"required"`
	Model         string            `yaml:"model" validate:"required"`
	TaskModels    map[string]string `yaml:"task_models"` // 任务专用模型
	Temperature   float64           `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int               `yaml:"max_tokens" validate:"gte=0"`
	Timeout       string            `yaml:"timeout"` // 单次调用超时, 例如 "60s"
	MaxRetries    int               `yaml:"max_retries" validate:"gte=0,lte=10"`
	RetryWait     string            `yaml:"retry_wait"` // 首次重试等待, 之后指数增长
	QPM           int               `yaml:"qpm" validate:"gte=0"`
	OllamaBaseURL string            `yaml:"ollama_base_url"`
}

// ModelFor 返回任务对应的模型名, 未配置时回退到默认模型
func (c LLMConfig) ModelFor(task string) string {
	if m, ok := c.TaskModels[task]; ok && m != "" {
		return m
	}
	return c.Model
}

// CallTimeout 单次调用超时
func (c LLMConfig) CallTimeout() time.Duration {
	return parseDurationOr(c.Timeout, 60*time.Second)
}

// RetryWaitDuration 首次重试等待时间
func (c LLMConfig) RetryWaitDuration() time.Duration {
	return parseDurationOr(c.RetryWait, 2*time.Second)
}

// TranscriberConfig PDF转写配置
type TranscriberConfig struct {
	Type           string `yaml:"type" validate:"oneof=eino tika"` // eino: 本地解析; tika: Tika服务器
	TikaServerURL  string `yaml:"tika_server_url" validate:"required_if=Type tika"`
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
	MetadataMode   string `yaml:"metadata_mode" validate:"omitempty,oneof=full minimal none"`
}

// Timeout 单个文件的转写超时, 未配置时为60秒
func (c TranscriberConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// BatchConfig 批处理配置
type BatchConfig struct {
	InputDir    string `yaml:"input_dir" validate:"required"`
	OutputDir   string `yaml:"output_dir" validate:"required"`
	Workers     int    `yaml:"workers" validate:"gte=1,lte=16"`
	ResultsFile string `yaml:"results_file"`
}

// AggregateConfig 汇总表配置
type AggregateConfig struct {
	Source   string `yaml:"source" validate:"oneof=records markdown"`
	CSVFile  string `yaml:"csv_file" validate:"required"`
	XLSXFile string `yaml:"xlsx_file"`
}

// CacheConfig LLM响应缓存配置
type CacheConfig struct {
	Type string `yaml:"type" validate:"oneof=none memory redis"`
	TTL  string `yaml:"ttl"`
}

// TTLDuration 缓存有效期
func (c CacheConfig) TTLDuration() time.Duration {
	return parseDurationOr(c.TTL, 24*time.Hour)
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置(秒)
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
}

// MinIOConfig 产物归档配置
type MinIOConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint" validate:"required_if=Enabled true"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket" validate:"required_if=Enabled true"`
	Location        string `yaml:"location"`
}

// RabbitMQConfig 处理事件发布配置
type RabbitMQConfig struct {
	Enabled                bool   `yaml:"enabled"`
	URL                    string `yaml:"url" validate:"required_if=Enabled true"`
	Exchange               string `yaml:"exchange"`
	FileProcessedRouteKey  string `yaml:"file_processed_routing_key"`
	BatchCompletedRouteKey string `yaml:"batch_completed_routing_key"`
}

// TracingConfig OpenTelemetry 配置
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint" validate:"required_if=Enabled true"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address string   `yaml:"address"` // 例如 ":8080" or "0.0.0.0:8080"
	APIKeys []string `yaml:"api_keys"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
	File         string `yaml:"file"`          // 非空时额外写入滚动日志文件
	MaxSizeMB    int    `yaml:"max_size_mb"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAgeDays   int    `yaml:"max_age_days"`
	Compress     bool   `yaml:"compress"`
}

// Config 应用程序配置
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Batch       BatchConfig       `yaml:"batch"`
	Aggregate   AggregateConfig   `yaml:"aggregate"`
	Cache       CacheConfig       `yaml:"cache"`
	Redis       RedisConfig       `yaml:"redis"`
	MinIO       MinIOConfig       `yaml:"minio"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Server      ServerConfig      `yaml:"server"`
	Logger      LoggerConfig      `yaml:"logger"`

	// 模型QPM限制配置
	ModelQPMLimits map[string]int `yaml:"model_qpm_limits"`
}

// CSVPath 汇总表的完整路径
func (c *Config) CSVPath() string {
	return filepath.Join(c.Batch.OutputDir, c.Aggregate.CSVFile)
}

// XLSXPath 导出表格的完整路径
func (c *Config) XLSXPath() string {
	return filepath.Join(c.Batch.OutputDir, c.Aggregate.XLSXFile)
}

// ResultsPath 批处理结果JSON的完整路径
func (c *Config) ResultsPath() string {
	return filepath.Join(c.Batch.OutputDir, c.Batch.ResultsFile)
}

// LoadConfig 从文件加载配置.
// configPath 为空时依次查找默认位置, 都不存在则使用默认配置.
// 随后加载 .env、应用环境变量覆盖并补全默认值; 校验由 Validate 单独完成.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, p := range searchPaths() {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	// .env 不存在不算错误
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func searchPaths() []string {
	paths := []string{
		"config.yaml",
		"../config.yaml",
		"../../config.yaml",
		filepath.Join(os.Getenv("HOME"), ".resume-parser", "config.yaml"),
	}
	if execPath, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
	}
	return paths
}

func applyEnvOverrides(cfg *Config) {
	// 远程模型密钥, 依次尝试多个常见变量名
	for _, key := range []string{"LLM_API_KEY", "DASHSCOPE_API_KEY", "OPENAI_API_KEY"} {
		if v := os.Getenv(key); v != "" {
			cfg.LLM.APIKey = v
			break
		}
	}
	setFromEnv(&cfg.LLM.APIURL, "LLM_API_URL")
	setFromEnv(&cfg.LLM.Model, "LLM_MODEL")
	setFromEnv(&cfg.LLM.Provider, "LLM_PROVIDER")
	setFromEnv(&cfg.LLM.OllamaBaseURL, "OLLAMA_BASE_URL")
	setFromEnv(&cfg.Transcriber.TikaServerURL, "TIKA_SERVER_URL")
	setFromEnv(&cfg.Batch.InputDir, "RESUME_INPUT_DIR")
	setFromEnv(&cfg.Batch.OutputDir, "RESUME_OUTPUT_DIR")
	setFromEnv(&cfg.Redis.Address, "REDIS_ADDR")
	setFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&cfg.MinIO.Endpoint, "MINIO_ENDPOINT")
	setFromEnv(&cfg.MinIO.AccessKeyID, "MINIO_ACCESS_KEY_ID")
	setFromEnv(&cfg.MinIO.SecretAccessKey, "MINIO_SECRET_ACCESS_KEY")
	setFromEnv(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	setFromEnv(&cfg.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := os.Getenv("RESUME_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Workers = n
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAICompatible
	}
	if cfg.LLM.Provider == ProviderOllama {
		if cfg.LLM.APIURL == "" {
			cfg.LLM.APIURL = cfg.LLM.OllamaBaseURL
		}
		if cfg.LLM.APIURL == "" {
			cfg.LLM.APIURL = "http://localhost:11434"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "llama3.1"
		}
	}
	if cfg.LLM.APIURL == "" {
		cfg.LLM.APIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "qwen-turbo"
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 4096
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 2
	}
	if cfg.LLM.Timeout == "" {
		cfg.LLM.Timeout = "60s"
	}
	if cfg.LLM.RetryWait == "" {
		cfg.LLM.RetryWait = "2s"
	}

	if cfg.Transcriber.Type == "" {
		cfg.Transcriber.Type = "eino"
	}
	if cfg.Transcriber.Type == "tika" && cfg.Transcriber.TikaServerURL == "" {
		cfg.Transcriber.TikaServerURL = "http://localhost:9998"
	}
	if cfg.Transcriber.TimeoutSeconds == 0 {
		cfg.Transcriber.TimeoutSeconds = 60
	}

	if cfg.Batch.InputDir == "" {
		cfg.Batch.InputDir = "resumes"
	}
	if cfg.Batch.OutputDir == "" {
		cfg.Batch.OutputDir = "output_results"
	}
	if cfg.Batch.Workers == 0 {
		cfg.Batch.Workers = 1
	}
	if cfg.Batch.ResultsFile == "" {
		cfg.Batch.ResultsFile = "results.json"
	}

	if cfg.Aggregate.Source == "" {
		cfg.Aggregate.Source = AggregateSourceRecords
	}
	if cfg.Aggregate.CSVFile == "" {
		cfg.Aggregate.CSVFile = "parsed_resumes.csv"
	}
	if cfg.Aggregate.XLSXFile == "" {
		cfg.Aggregate.XLSXFile = "parsed_resumes.xlsx"
	}

	if cfg.Cache.Type == "" {
		cfg.Cache.Type = "none"
	}

	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 10
	}
	if cfg.Redis.DialTimeoutSeconds == 0 {
		cfg.Redis.DialTimeoutSeconds = 5
	}
	if cfg.Redis.ReadTimeoutSeconds == 0 {
		cfg.Redis.ReadTimeoutSeconds = 3
	}
	if cfg.Redis.WriteTimeoutSeconds == 0 {
		cfg.Redis.WriteTimeoutSeconds = 3
	}

	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "resume.parser.events"
	}
	if cfg.RabbitMQ.FileProcessedRouteKey == "" {
		cfg.RabbitMQ.FileProcessedRouteKey = "resume.file.processed"
	}
	if cfg.RabbitMQ.BatchCompletedRouteKey == "" {
		cfg.RabbitMQ.BatchCompletedRouteKey = "resume.batch.completed"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "resume-parser"
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = 1
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "pretty"
	}
	if cfg.Logger.MaxSizeMB == 0 {
		cfg.Logger.MaxSizeMB = 100
	}
}

// ErrMissingRedisAddress 启用Redis缓存但未配置地址
var ErrMissingRedisAddress = errors.New("cache.type=redis 但未配置 redis.address")

// Validate 校验配置. 缺少必需凭据等不可恢复的错误应在启动时直接终止.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("配置校验失败: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("配置校验失败: %w", err)
	}
	if c.Cache.Type == "redis" && c.Redis.Address == "" {
		return ErrMissingRedisAddress
	}
	if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
		return fmt.Errorf("llm.timeout 无效: %w", err)
	}
	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s 不满足 %s", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += "(" + fe.Param() + ")"
		}
	}
	return msg
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
