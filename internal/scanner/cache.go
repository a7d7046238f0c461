package scanner

import (
	"sync"
	"time"
)

// DefaultCacheTTL はプローブ結果キャッシュの既定の有効期間です。
const DefaultCacheTTL = 5 * time.Second

type cacheEntry struct {
	available  bool
	observedAt time.Time
}

// ProbeCache はプローブ結果を短時間だけ保持するキャッシュです。
// 有効期間を過ぎたエントリは存在しないものとして扱われ、読み出し時に削除されます。
type ProbeCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int]cacheEntry
}

// CacheOption は ProbeCache のオプションです。
type CacheOption func(*ProbeCache)

// WithClock は現在時刻の取得関数を差し替えます。
func WithClock(now func() time.Time) CacheOption {
	return func(c *ProbeCache) {
		c.now = now
	}
}

// NewProbeCache は新しい ProbeCache を作成します。
func NewProbeCache(ttl time.Duration, opts ...CacheOption) *ProbeCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	c := &ProbeCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get はキャッシュされた結果を返します。2 番目の戻り値はヒットしたかどうかです。
func (c *ProbeCache) Get(port int) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[port]
	if !ok {
		return false, false
	}
	if c.now().Sub(entry.observedAt) >= c.ttl {
		delete(c.entries, port)
		return false, false
	}
	return entry.available, true
}

// Set は結果を記録します。既存のエントリは上書きされます。
func (c *ProbeCache) Set(port int, available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[port] = cacheEntry{available: available, observedAt: c.now()}
}

// Clear は指定したポートのエントリを削除します。引数がない場合はすべて削除します。
func (c *ProbeCache) Clear(ports ...int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(ports) == 0 {
		c.entries = make(map[int]cacheEntry)
		return
	}
	for _, port := range ports {
		delete(c.entries, port)
	}
}

// Len は有効なエントリ数を返します。期限切れのエントリはここで削除されます。
func (c *ProbeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for port, entry := range c.entries {
		if now.Sub(entry.observedAt) >= c.ttl {
			delete(c.entries, port)
		}
	}
	return len(c.entries)
}

// TTL はキャッシュの有効期間を返します。
func (c *ProbeCache) TTL() time.Duration {
	return c.ttl
}
