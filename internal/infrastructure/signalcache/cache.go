// Package signalcache 提供 Tier 3 仓库信号的 TTL 缓存
package signalcache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// Cache 纯 TTL 缓存，带 LRU 容量兜底
// 过期快照按未命中处理，绝不返回陈旧值：下游的风险提示依赖新鲜度
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	// order 最近使用在队首，淘汰从队尾开始
	order      *list.List
	maxEntries int
	defaultTTL int64
	logger     *slog.Logger

	// now 可注入的时钟（测试用）
	now func() time.Time

	// lastWrite 最近一次 Put 的时间，用于质量评估
	lastWrite time.Time
}

type cacheEntry struct {
	key      string
	snapshot *signal.Snapshot
}

// NewCache 创建信号缓存
func NewCache(cfg *config.SignalsConfig) *Cache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	defaultTTL := cfg.DefaultTTLSeconds
	if defaultTTL <= 0 {
		defaultTTL = 3600
	}

	return &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
		logger:     log.NewModuleLogger("signalcache", "cache"),
		now:        time.Now,
	}
}

// Get 获取快照；不存在或已过期时返回 (nil, false)
// 过期条目在访问时顺带删除
func (c *Cache) Get(key string) (*signal.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if entry.snapshot.IsStale(c.now()) {
		c.removeLocked(key, elem)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.snapshot, true
}

// Put 写入快照；ttlSeconds <= 0 时使用默认 TTL
func (c *Cache) Put(key string, payload map[string]interface{}, ttlSeconds int64) {
	if ttlSeconds <= 0 {
		ttlSeconds = c.defaultTTL
	}

	snapshot := &signal.Snapshot{
		Key:        key,
		Payload:    payload,
		ComputedAt: c.now(),
		TTLSeconds: ttlSeconds,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).snapshot = snapshot
		c.order.MoveToFront(elem)
	} else {
		elem := c.order.PushFront(&cacheEntry{key: key, snapshot: snapshot})
		c.entries[key] = elem
	}

	c.lastWrite = c.now()

	// 超出容量时淘汰最久未使用的条目
	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		evicted := oldest.Value.(*cacheEntry)
		c.removeLocked(evicted.key, oldest)
		c.logger.Debug("evicted signal entry over capacity", "key", evicted.key)
	}
}

// Invalidate 主动失效指定 key
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeLocked(key, elem)
	}
}

// IsStale key 是否过期；不存在视为过期
func (c *Cache) IsStale(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return true
	}
	return elem.Value.(*cacheEntry).snapshot.IsStale(c.now())
}

// Len 当前条目总数（含尚未被访问清理的过期项）
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys 当前非过期的 key 列表
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for key, elem := range c.entries {
		if !elem.Value.(*cacheEntry).snapshot.IsStale(now) {
			keys = append(keys, key)
		}
	}
	return keys
}

// LastWriteTime 最近一次写入时间（零值表示从未写入）
func (c *Cache) LastWriteTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastWrite
}

// SetNowFunc 注入时钟（仅用于测试）
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// removeLocked 删除条目，调用方需持锁
func (c *Cache) removeLocked(key string, elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, key)
}
