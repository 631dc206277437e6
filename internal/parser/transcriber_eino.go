package parser

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

// pageSeparator 解析器返回多个文档时的拼接分隔
const pageSeparator = "\n\n"

// EinoPDFTranscriber 使用 Eino PDF Parser 在本地转写PDF
type EinoPDFTranscriber struct {
	parser  *pdf.PDFParser
	logger  zerolog.Logger
	timeout time.Duration
}

// EinoPDFOption PDF转写器的配置选项
type EinoPDFOption func(*EinoPDFTranscriber)

// WithEinoLogger 配置日志记录器
func WithEinoLogger(logger zerolog.Logger) EinoPDFOption {
	return func(e *EinoPDFTranscriber) {
		e.logger = logger
	}
}

// WithEinoTimeout 配置单个文件的解析超时
func WithEinoTimeout(timeout time.Duration) EinoPDFOption {
	return func(e *EinoPDFTranscriber) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

// NewEinoPDFTranscriber 初始化 Eino PDF 转写器.
// 不按页面分割, 以获取整个文档的连续文本.
func NewEinoPDFTranscriber(ctx context.Context, options ...EinoPDFOption) (*EinoPDFTranscriber, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Eino PDF parser: %w", err)
	}

	t := &EinoPDFTranscriber{
		parser:  p,
		logger:  zerolog.Nop(),
		timeout: 60 * time.Second,
	}
	for _, option := range options {
		option(t)
	}
	return t, nil
}

// Transcribe 实现 Transcriber 接口
func (e *EinoPDFTranscriber) Transcribe(ctx context.Context, filePath, outputDir string) (string, error) {
	startTime := time.Now()
	e.logger.Debug().Str("file", filePath).Msg("开始处理PDF文件")

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF file %s: %w", filePath, err)
	}
	defer file.Close()

	if fileInfo, statErr := file.Stat(); statErr == nil {
		e.logger.Debug().Float64("size_mb", float64(fileInfo.Size())/1024/1024).Msg("PDF文件大小")
	}

	text, err := e.TranscribeReader(ctx, file, filePath)
	if err != nil {
		e.logger.Error().Err(err).Str("file", filePath).Dur("elapsed", time.Since(startTime)).Msg("PDF处理失败")
		return "", err
	}

	if _, err := writeArtifact(filePath, outputDir, text); err != nil {
		return "", err
	}

	e.logger.Info().
		Str("file", filePath).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("PDF转写完成")
	return text, nil
}

// TranscribeReader 从 io.Reader 中提取全文
func (e *EinoPDFTranscriber) TranscribeReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(ctx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"source_file_path": uri,
			"extraction_time":  time.Now().Format(time.RFC3339),
		}),
	)
	if err != nil {
		return "", fmt.Errorf("eino PDF parser failed for URI %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("eino PDF parser returned no documents for URI %s", uri)
	}
	if len(docs) > 1 {
		e.logger.Debug().Int("documents", len(docs)).Str("uri", uri).Msg("解析器返回了多个文档, 按顺序拼接")
	}

	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	return strings.Join(parts, pageSeparator), nil
}
