package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"resume-parser-go/internal/constants"
)

// ResponseCache 模型响应缓存. 未命中时 found 为 false 且 err 为 nil.
type ResponseCache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// ResponseCacheKey 由模型名与完整提示内容生成缓存键
func ResponseCacheKey(modelName string, prompt string) string {
	sum := sha256.Sum256([]byte(modelName + "\x00" + prompt))
	return fmt.Sprintf(constants.KeyLLMResponse, modelName, hex.EncodeToString(sum[:]))
}
