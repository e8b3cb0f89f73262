package contextengine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/memtier/backend/internal/domain/contextengine"
)

// bundleCache 组合结果的短 TTL 缓存
// 缓存键包含各层状态版本，任何一层写入后旧结果自动失配
type bundleCache struct {
	mu      sync.Mutex
	entries map[string]*bundleEntry
	ttl     time.Duration
}

type bundleEntry struct {
	bundle    *contextengine.Bundle
	expiresAt time.Time
}

func newBundleCache(ttl time.Duration) *bundleCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &bundleCache{
		entries: make(map[string]*bundleEntry),
		ttl:     ttl,
	}
}

// fingerprint 请求指纹：请求字段 + 各层状态版本
func fingerprint(req *contextengine.Request, tier1, tier2, tier3 int64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%s|%d|%d|%d",
		req.UserRequest,
		strings.Join(req.CurrentFiles, ","),
		req.TotalTokenBudget,
		req.ConversationID,
		tier1, tier2, tier3,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *bundleCache) get(key string) (*contextengine.Bundle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.bundle, true
}

func (c *bundleCache) put(key string, bundle *contextengine.Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	// 写入时顺带清理过期条目，避免无界增长
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = &bundleEntry{
		bundle:    bundle,
		expiresAt: now.Add(c.ttl),
	}
}
