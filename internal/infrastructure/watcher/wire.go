package watcher

import (
	"github.com/google/wire"
	"github.com/memtier/backend/internal/domain/events"
	"github.com/memtier/backend/internal/infrastructure/config"
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() events.EventBus {
	return NewEventBus()
}

// ProvideFileWatcher 提供文件监听器实例
func ProvideFileWatcher(cfg *config.SignalsConfig, eventBus events.EventBus) (*FileWatcher, error) {
	return NewFileWatcher(NewWatchConfig(cfg), eventBus)
}

// ProviderSet Watcher 基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	ProvideFileWatcher,
)
