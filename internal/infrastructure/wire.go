package infrastructure

import (
	"github.com/google/wire"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/embedding"
	"github.com/memtier/backend/internal/infrastructure/signalcache"
	"github.com/memtier/backend/internal/infrastructure/storage"
	"github.com/memtier/backend/internal/infrastructure/token"
	"github.com/memtier/backend/internal/infrastructure/vector"
	"github.com/memtier/backend/internal/infrastructure/watcher"
	"github.com/memtier/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	signalcache.ProviderSet,
	token.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
)
