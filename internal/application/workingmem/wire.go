package workingmem

import "github.com/google/wire"

// ProviderSet 工作记忆 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
)
