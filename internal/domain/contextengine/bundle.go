package contextengine

import (
	"fmt"
	"strings"
	"time"

	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/domain/signal"
)

// Tier 记忆层级
type Tier int

const (
	// TierWorkingMemory Tier 1：短期对话缓存
	TierWorkingMemory Tier = 1
	// TierKnowledge Tier 2：长期模式图谱
	TierKnowledge Tier = 2
	// TierSignals Tier 3：仓库信号缓存
	TierSignals Tier = 3
)

// String 层级名称
func (t Tier) String() string {
	switch t {
	case TierWorkingMemory:
		return "working_memory"
	case TierKnowledge:
		return "knowledge_graph"
	case TierSignals:
		return "signals"
	default:
		return "unknown"
	}
}

// Request 上下文构建请求
type Request struct {
	UserRequest      string   `json:"user_request"`
	CurrentFiles     []string `json:"current_files,omitempty"`
	TotalTokenBudget int      `json:"total_token_budget"`
	ConversationID   string   `json:"conversation_id,omitempty"`
}

// Item 带标签的变体条目
// source_tier 为判别字段，三个负载指针至多一个非空，避免继承式分发
type Item struct {
	ID             string  `json:"id"`
	SourceTier     Tier    `json:"source_tier"`
	RelevanceScore float64 `json:"relevance_score"`
	TokenCost      int     `json:"token_cost"`

	Turn     *conversation.Turn `json:"turn,omitempty"`
	Pattern  *knowledge.Pattern `json:"pattern,omitempty"`
	Snapshot *signal.Snapshot   `json:"snapshot,omitempty"`
}

// TierBudget 单层预算明细
type TierBudget struct {
	Allocated int `json:"allocated"`
	Used      int `json:"used"`
	// DroppedItems 截断时丢弃的条目数
	DroppedItems int `json:"dropped_items"`
	// DroppedTokens 截断时损失的 token 数
	DroppedTokens int `json:"dropped_tokens"`
}

// BudgetReport 各层分配与实际用量
type BudgetReport struct {
	TotalBudget int                    `json:"total_budget"`
	Tiers       map[string]*TierBudget `json:"tiers"`
	Warnings    []string               `json:"warnings,omitempty"`
}

// HealthStatus 质量等级
type HealthStatus string

const (
	StatusExcellent HealthStatus = "EXCELLENT"
	StatusGood      HealthStatus = "GOOD"
	StatusFair      HealthStatus = "FAIR"
	StatusPoor      HealthStatus = "POOR"
)

// TierQuality 单层健康度报告
type TierQuality struct {
	StalenessScore   float64      `json:"staleness_score"`
	CoverageScore    float64      `json:"coverage_score"`
	PerformanceScore float64      `json:"performance_score"`
	OverallScore     float64      `json:"overall_score"`
	Status           HealthStatus `json:"status"`
}

// QualityReport 各层健康度
type QualityReport struct {
	Tiers      map[string]*TierQuality `json:"tiers"`
	AssessedAt time.Time               `json:"assessed_at"`
}

// Bundle 编排器的输出：按层分组的条目加预算/质量元数据
// 每次请求构建，短暂缓存，不做长期持久化
type Bundle struct {
	Tier1Items    []*Item        `json:"tier1_items"`
	Tier2Items    []*Item        `json:"tier2_items"`
	Tier3Items    []*Item        `json:"tier3_items"`
	BudgetReport  *BudgetReport  `json:"budget_report"`
	QualityReport *QualityReport `json:"quality_report"`
	Warnings      []string       `json:"warnings,omitempty"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// ItemCount 条目总数
func (b *Bundle) ItemCount() int {
	return len(b.Tier1Items) + len(b.Tier2Items) + len(b.Tier3Items)
}

// RenderSummary 渲染有界文本摘要，供下游注入提示词
func (b *Bundle) RenderSummary() string {
	var sb strings.Builder

	if len(b.Tier1Items) > 0 {
		sb.WriteString("## Recent conversation\n")
		for _, item := range b.Tier1Items {
			if item.Turn == nil {
				continue
			}
			fmt.Fprintf(&sb, "- [%s] %s\n", item.Turn.Role, item.Turn.Content)
		}
	}

	if len(b.Tier2Items) > 0 {
		sb.WriteString("## Learned patterns\n")
		for _, item := range b.Tier2Items {
			if item.Pattern == nil {
				continue
			}
			fmt.Fprintf(&sb, "- %s (confidence %.2f)\n", item.Pattern.Title, item.Pattern.Confidence)
		}
	}

	if len(b.Tier3Items) > 0 {
		sb.WriteString("## Repository signals\n")
		for _, item := range b.Tier3Items {
			if item.Snapshot == nil {
				continue
			}
			fmt.Fprintf(&sb, "- %s (churn %.2f)\n", item.Snapshot.Key, item.Snapshot.ChurnScore())
		}
	}

	for _, w := range b.Warnings {
		fmt.Fprintf(&sb, "> warning: %s\n", w)
	}

	return sb.String()
}
