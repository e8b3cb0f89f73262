package conversation

import (
	"strings"
	"time"
)

// Role 发言角色
type Role string

const (
	// RoleUser 用户发言
	RoleUser Role = "user"
	// RoleAssistant 助手发言
	RoleAssistant Role = "assistant"
)

// IsValid 检查角色是否合法
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn 单轮对话
// 创建后内容不再变更，仅允许事后追加 LinkedPatternIDs
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	// Entities 从内容中提取的引用：文件路径、符号名、自由标签
	Entities []string `json:"entities,omitempty"`
	// LinkedPatternIDs 本轮应用到的 Tier 2 模式 ID（非拥有引用，仅存 ID）
	LinkedPatternIDs []string `json:"linked_pattern_ids,omitempty"`
}

// Conversation 对话，按共享 ID 组织一组有序 Turn
type Conversation struct {
	ID        string     `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Active    bool       `json:"active"`
	TurnCount int        `json:"turn_count"`
}

// ConversationContext GetContext 的返回结构
type ConversationContext struct {
	Current *Conversation `json:"current"`
	// PriorTurns 最近 K 轮（完整历史仍保留在存储中）
	PriorTurns      []*Turn  `json:"prior_turns"`
	RelatedEntities []string `json:"related_entities"`
}

// SearchFilter 搜索过滤条件
type SearchFilter struct {
	ConversationID string
	Role           Role
	Entity         string
	Limit          int
}

// MatchesQuery 检查 Turn 是否命中关键词查询
// 命中条件：内容包含任一关键词，或实体与关键词相等（大小写不敏感）
func (t *Turn) MatchesQuery(query string) bool {
	if query == "" {
		return true
	}
	content := strings.ToLower(t.Content)
	for _, kw := range strings.Fields(strings.ToLower(query)) {
		if strings.Contains(content, kw) {
			return true
		}
		for _, e := range t.Entities {
			if strings.EqualFold(e, kw) {
				return true
			}
		}
	}
	return false
}
