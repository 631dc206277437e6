package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"resume-parser-go/internal/config"
	"resume-parser-go/internal/constants"
)

// MinIO 运行产物归档: 转写的markdown、汇总表与结果JSON
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "minio").Logger(),
	}
	if err := m.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// EnsureBucket 确保存储桶存在
func (m *MinIO) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.cfg.Bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.cfg.Bucket, minio.MakeBucketOptions{Region: m.cfg.Location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.cfg.Bucket, err)
	}
	m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("存储桶已创建")
	return nil
}

// ArtifactObjectName 返回本地产物在存储桶中的对象名
func ArtifactObjectName(runID, localPath string) string {
	return path.Join(constants.ArtifactRunPrefix, runID, filepath.Base(localPath))
}

// ArchiveFile 上传本地产物, 返回对象名
func (m *MinIO) ArchiveFile(ctx context.Context, runID, localPath string) (string, error) {
	objectName := ArtifactObjectName(runID, localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	info, err := m.client.FPutObject(ctx, m.cfg.Bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"run-id": runID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("上传产物 %s 失败: %w", localPath, err)
	}
	m.logger.Debug().Str("object", objectName).Int64("size", info.Size).Msg("产物已归档")
	return objectName, nil
}
