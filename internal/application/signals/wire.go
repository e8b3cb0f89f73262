package signals

import "github.com/google/wire"

// ProviderSet 信号服务 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
