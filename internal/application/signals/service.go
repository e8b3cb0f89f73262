// Package signals 实现 Tier 3 仓库信号服务
package signals

import (
	"log/slog"
	"sync"
	"time"

	"github.com/memtier/backend/internal/domain/events"
	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/log"
	"github.com/memtier/backend/internal/infrastructure/signalcache"
)

// Service Tier 3 信号服务
// 信号本身由外部采集进程计算后上报；本服务只负责缓存、
// 失效和向编排器提供新鲜快照
type Service struct {
	cache    *signalcache.Cache
	eventBus events.EventBus
	logger   *slog.Logger

	// unsubscribe 取消文件事件订阅
	unsubscribe func()

	// stateVersion 每次写入/失效递增，供组合结果缓存做失效判断
	stateVersion int64
	versionMu    sync.Mutex
}

// NewService 创建信号服务
func NewService(cache *signalcache.Cache, eventBus events.EventBus) *Service {
	return &Service{
		cache:    cache,
		eventBus: eventBus,
		logger:   log.NewModuleLogger("signals", "service"),
	}
}

// Start 订阅仓库文件事件
// 文件一旦变化立即失效对应 key，保证编辑之后不会再基于过期信号给出风险提示
func (s *Service) Start() {
	s.unsubscribe = s.eventBus.SubscribeMultiple(
		[]events.EventType{
			events.RepoFileModified,
			events.RepoFileCreated,
			events.RepoFileDeleted,
		},
		events.HandlerFunc(s.handleRepoFileEvent),
	)
}

// Stop 取消订阅
func (s *Service) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// handleRepoFileEvent 文件变化时失效 per-file key 和全局 key
func (s *Service) handleRepoFileEvent(event events.Event) error {
	fileEvent, ok := event.(*events.RepoFileEvent)
	if !ok {
		return nil
	}

	s.Invalidate(fileEvent.FilePath)
	s.Invalidate(signal.GlobalKey)

	s.logger.Debug("Invalidated signals after repo file event",
		"path", fileEvent.FilePath,
		"type", fileEvent.EventType,
	)
	return nil
}

// Report 上报信号快照；ttlSeconds <= 0 时使用默认 TTL
func (s *Service) Report(key string, payload map[string]interface{}, ttlSeconds int64) {
	s.cache.Put(key, payload, ttlSeconds)
	s.bumpVersion()
}

// Get 获取快照；不存在或已过期返回 (nil, false)
func (s *Service) Get(key string) (*signal.Snapshot, bool) {
	return s.cache.Get(key)
}

// Invalidate 主动失效指定 key，并发布失效事件
func (s *Service) Invalidate(key string) {
	s.cache.Invalidate(key)
	s.bumpVersion()

	if s.eventBus != nil {
		s.eventBus.Publish(&events.RepoFileEvent{
			EventType: events.SignalInvalidated,
			FilePath:  key,
			EventTime: time.Now(),
		})
	}
}

// Snapshots 返回当前新鲜的全部快照
func (s *Service) Snapshots() []*signal.Snapshot {
	keys := s.cache.Keys()
	snapshots := make([]*signal.Snapshot, 0, len(keys))
	for _, key := range keys {
		if snap, ok := s.cache.Get(key); ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

// Count 新鲜快照数量（质量评估用）
func (s *Service) Count() int {
	return len(s.cache.Keys())
}

// LastWriteTime 最近写入时间（质量评估用）
func (s *Service) LastWriteTime() time.Time {
	return s.cache.LastWriteTime()
}

// StateVersion 当前状态版本号
func (s *Service) StateVersion() int64 {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	return s.stateVersion
}

func (s *Service) bumpVersion() {
	s.versionMu.Lock()
	s.stateVersion++
	s.versionMu.Unlock()
}
