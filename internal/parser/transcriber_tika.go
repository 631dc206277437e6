package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TikaTranscriber 通过 Apache Tika 服务器转写PDF
type TikaTranscriber struct {
	ServerURL string
	Client    *http.Client

	extractFullMetadata    bool
	extractMinimalMetadata bool
	extractAnnotations     bool
	logger                 zerolog.Logger
}

// TikaOption Tika转写器的配置选项
type TikaOption func(*TikaTranscriber)

// WithFullMetadata 提取全部元数据
func WithFullMetadata(extract bool) TikaOption {
	return func(e *TikaTranscriber) {
		e.extractFullMetadata = extract
	}
}

// WithMinimalMetadata 只提取页数、标题等关键元数据
func WithMinimalMetadata(extract bool) TikaOption {
	return func(e *TikaTranscriber) {
		e.extractMinimalMetadata = extract
	}
}

// WithAnnotations 是否保留PDF注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaTranscriber) {
		e.extractAnnotations = extract
	}
}

// WithTikaLogger 配置日志记录器
func WithTikaLogger(logger zerolog.Logger) TikaOption {
	return func(e *TikaTranscriber) {
		e.logger = logger
	}
}

// WithTimeout 配置HTTP客户端超时时间
func WithTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTranscriber) {
		if timeout > 0 {
			e.Client.Timeout = timeout
		}
	}
}

// NewTikaTranscriber 创建Tika转写器
func NewTikaTranscriber(serverURL string, options ...TikaOption) *TikaTranscriber {
	t := &TikaTranscriber{
		ServerURL: strings.TrimRight(serverURL, "/"),
		Client: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Transcribe 实现 Transcriber 接口
func (e *TikaTranscriber) Transcribe(ctx context.Context, filePath, outputDir string) (string, error) {
	startTime := time.Now()
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("读取PDF文件失败 %s: %w", filePath, err)
	}

	uri := filepath.Base(filePath)
	text, err := e.TranscribeBytes(ctx, data, uri)
	if err != nil {
		return "", err
	}

	if e.extractFullMetadata || e.extractMinimalMetadata {
		meta, metaErr := e.Metadata(ctx, data, uri)
		if metaErr != nil {
			e.logger.Warn().Err(metaErr).Str("file", filePath).Msg("元数据提取失败, 继续处理")
		} else {
			ev := e.logger.Debug().Str("file", filePath)
			for k, v := range meta {
				ev = ev.Interface(k, v)
			}
			ev.Msg("PDF元数据")
		}
	}

	if _, err := writeArtifact(filePath, outputDir, text); err != nil {
		return "", err
	}

	e.logger.Info().
		Str("file", filePath).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Tika转写完成")
	return text, nil
}

// TranscribeBytes 将PDF字节发送到 /tika 端点, 返回纯文本
func (e *TikaTranscriber) TranscribeBytes(ctx context.Context, data []byte, uri string) (string, error) {
	url := fmt.Sprintf("%s/tika", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	return string(textBytes), nil
}

// Metadata 调用 /meta 端点提取文档元数据. 最小模式只保留关键字段.
func (e *TikaTranscriber) Metadata(ctx context.Context, data []byte, uri string) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/meta", e.ServerURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "application/json")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tika服务器返回错误状态码: %d", resp.StatusCode)
	}

	var metadata map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("解析元数据JSON失败: %w", err)
	}

	if e.extractFullMetadata {
		return metadata, nil
	}
	minimal := make(map[string]interface{})
	for k, v := range metadata {
		if isImportantMetadata(k) {
			minimal[k] = v
		}
	}
	return minimal, nil
}

var importantMetadataKeys = map[string]bool{
	"pdf:PDFVersion":      true,
	"xmpTPg:NPages":       true,
	"dcterms:created":     true,
	"language":            true,
	"dc:title":            true,
	"Content-Type":        true,
	"pdf:docinfo:title":   true,
	"pdf:docinfo:created": true,
}

func isImportantMetadata(key string) bool {
	return importantMetadataKeys[key]
}
