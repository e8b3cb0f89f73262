package knowledge

import "time"

// PatternRepository Tier 2 模式仓储接口
type PatternRepository interface {
	// Save 保存或更新模式
	Save(p *Pattern) error
	// FindByID 按 ID 查找，不存在时返回 nil
	FindByID(id string) (*Pattern, error)
	// FindAll 返回全部模式
	FindAll() ([]*Pattern, error)
	// FindByCategory 按分类返回模式
	FindByCategory(category string) ([]*Pattern, error)
	// UpdateConfidence 单条原子更新置信度（清扫路径使用）
	UpdateConfidence(id string, confidence float64) error
	// ApplyDecay 原子更新置信度并前移衰减锚点
	// 锚点按整区间前移保证重复清扫不叠加衰减
	ApplyDecay(id string, confidence float64, anchor time.Time) error
	// Boost 提升置信度并刷新 last_used_at / usage_count
	Boost(id string, confidence float64, lastUsedAt time.Time) error
	// Delete 硬删除模式
	Delete(id string) error
	// Count 模式总数
	Count() (int, error)
	// AppendConversationRef 追加应用到的对话 ID
	AppendConversationRef(patternID, conversationID string) error
	// LastWriteTime 最近一次写入的时间戳（毫秒）
	LastWriteTime() (int64, error)
}

// RelationshipRepository Tier 2 关系仓储接口
type RelationshipRepository interface {
	// Find 按 (subject, object, type) 精确查找，不存在时返回 nil
	Find(subject, object, relationshipType string) (*Relationship, error)
	// Save 保存或更新关系
	Save(r *Relationship) error
	// FindByEntity 查找实体参与的关系（subject 或 object 任一端）
	FindByEntity(entity string, types []string, minStrength float64) ([]*Relationship, error)
	// Count 关系总数
	Count() (int, error)
}
