package conversation

// Repository Tier 1 对话仓储接口
// 实现位于 infrastructure/storage，对话与轮次各占一张表
type Repository interface {
	// SaveConversation 保存或更新对话
	SaveConversation(conv *Conversation) error
	// SaveTurn 保存轮次
	SaveTurn(turn *Turn) error
	// FindConversation 按 ID 查找对话，不存在时返回 nil
	FindConversation(id string) (*Conversation, error)
	// FindActiveConversation 查找当前活跃对话，不存在时返回 nil
	FindActiveConversation() (*Conversation, error)
	// FindTurns 按对话 ID 查找轮次，按时间升序
	FindTurns(conversationID string) ([]*Turn, error)
	// RecentTurns 全局最近轮次，按时间降序
	RecentTurns(limit int) ([]*Turn, error)
	// CountConversations 对话总数
	CountConversations() (int, error)
	// OldestConversationID 按开始时间最早的对话 ID，空库返回 ""
	OldestConversationID() (string, error)
	// DeleteConversation 整体删除对话及其全部轮次
	DeleteConversation(id string) error
	// AppendLinkedPattern 向轮次追加模式 ID（事后回填）
	AppendLinkedPattern(turnID, patternID string) error
	// LastWriteTime 最近一次写入的时间戳（毫秒），用于质量评估
	LastWriteTime() (int64, error)
}
