package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache 进程内响应缓存
type MemoryCache struct {
	c *gocache.Cache
}

var _ ResponseCache = (*MemoryCache)(nil)

// NewMemoryCache 创建进程内缓存, defaultTTL 为默认过期时间
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Get 读取缓存
func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	return s, ok, nil
}

// Set 写入缓存, ttl<=0 时使用默认过期时间
func (m *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

// ItemCount 当前缓存条目数
func (m *MemoryCache) ItemCount() int {
	return m.c.ItemCount()
}
