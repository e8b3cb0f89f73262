package signalcache

import "github.com/google/wire"

// ProviderSet 信号缓存 ProviderSet
var ProviderSet = wire.NewSet(
	NewCache,
)
