package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RetryPolicy 指数退避重试策略: 第 n 次重试前等待 BaseWait * 2^n
type RetryPolicy struct {
	MaxRetries int
	BaseWait   time.Duration
}

// DefaultRetryPolicy 最多重试2次, 首次等待2秒
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 2, BaseWait: 2 * time.Second}

// Backoff 返回第 attempt 次重试(从0开始)前的等待时间
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return p.BaseWait * time.Duration(1<<uint(attempt))
}

// Do 执行 fn, 遇到可重试错误时按策略退避重试. onRetry 可为 nil.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if !IsRetryableError(err) || attempt >= p.MaxRetries || ctx.Err() != nil {
			return err
		}
		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

var retryableMarkers = []string{
	"timeout",
	"deadline exceeded",
	"connection reset",
	"connection refused",
	"EOF",
	"no such host",
	"429",
	"Too Many Requests",
	"rate limit",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
	"服务器繁忙",
	"请求超过限额",
	"QPS限制",
}

// IsRetryableError 按错误信息判断是否为瞬时错误
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	msg := err.Error()
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
