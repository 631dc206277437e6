package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"

	"github.com/rs/zerolog"
)

// Transcriber 将PDF转写为文本, 并把产物写入 <outputDir>/<stem>.md.
// 返回值为转写出的文本内容.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath, outputDir string) (string, error)
}

// ArtifactPath 返回转写产物路径: 输出目录下与源文件同名的 .md 文件
func ArtifactPath(filePath, outputDir string) string {
	base := filepath.Base(filePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+constants.MarkdownExt)
}

// writeArtifact 写入转写产物, 目录不存在时自动创建
func writeArtifact(filePath, outputDir, text string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败 %s: %w", outputDir, err)
	}
	path := ArtifactPath(filePath, outputDir)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("写入转写产物失败 %s: %w", path, err)
	}
	return path, nil
}

// NewTranscriber 按配置创建转写后端
func NewTranscriber(ctx context.Context, cfg config.TranscriberConfig, logger zerolog.Logger) (Transcriber, error) {
	switch cfg.Type {
	case "", "eino":
		return NewEinoPDFTranscriber(ctx, WithEinoLogger(logger), WithEinoTimeout(cfg.Timeout()))
	case "tika":
		opts := []TikaOption{WithTikaLogger(logger), WithTimeout(cfg.Timeout())}
		switch cfg.MetadataMode {
		case "full":
			opts = append(opts, WithFullMetadata(true))
		case "minimal":
			opts = append(opts, WithMinimalMetadata(true))
		}
		return NewTikaTranscriber(cfg.TikaServerURL, opts...), nil
	default:
		return nil, fmt.Errorf("不支持的转写类型: %s", cfg.Type)
	}
}
