package knowledge

import "github.com/google/wire"

// ProviderSet 知识图谱 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
	NewSemanticIndex,
	NewSweepScheduler,
)
