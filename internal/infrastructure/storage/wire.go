package storage

import "github.com/google/wire"

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,                 // 提供数据库连接
	NewConversationRepository, // Tier 1 对话仓储
	NewPatternRepository,      // Tier 2 模式仓储
	NewRelationshipRepository, // Tier 2 关系仓储
)
