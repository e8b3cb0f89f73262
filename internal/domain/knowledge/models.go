package knowledge

import (
	"math"
	"time"
)

// Pattern Tier 2 学习到的模式
type Pattern struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	// Confidence 置信度 [0,1]，随时间衰减，复用时提升
	Confidence float64 `json:"confidence"`
	// Context 模式的实质内容（不透明结构化负载，JSON 存储）
	Context    map[string]interface{} `json:"context,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	LastUsedAt time.Time              `json:"last_used_at"`
	UsageCount int                    `json:"usage_count"`
	// AppliedInConversationIDs 回指 Tier 1 的非拥有引用
	AppliedInConversationIDs []string `json:"applied_in_conversation_ids,omitempty"`
}

// Relationship 两个文件类标识之间的带类型边
type Relationship struct {
	ID               string    `json:"id"`
	Subject          string    `json:"subject"`
	Object           string    `json:"object"`
	RelationshipType string    `json:"relationship_type"`
	Strength         float64   `json:"strength"`
	ObservationCount int       `json:"observation_count"`
	LastObservedAt   time.Time `json:"last_observed_at"`
}

// DecayPolicy 衰减策略
type DecayPolicy struct {
	// Rate 每个衰减区间的衰减比例（如 0.05 表示 5%）
	Rate float64
	// Interval 衰减区间长度（如 30 天）
	Interval time.Duration
	// Floor 置信度下限，低于此值的模式在清扫中被剪除
	Floor float64
}

// DefaultDecayPolicy 默认策略：每 30 天衰减 5%，下限 0.3
func DefaultDecayPolicy() DecayPolicy {
	return DecayPolicy{
		Rate:     0.05,
		Interval: 30 * 24 * time.Hour,
		Floor:    0.3,
	}
}

// Intervals 距锚点的完整衰减区间数
func (p DecayPolicy) Intervals(anchor, now time.Time) int {
	if p.Interval <= 0 {
		return 0
	}
	elapsed := now.Sub(anchor)
	if elapsed < p.Interval {
		return 0
	}
	return int(elapsed / p.Interval)
}

// DecayedConfidence 计算衰减后的置信度
// confidence *= (1-rate)^intervals，intervals 为距锚点的完整区间数
// 不足一个区间时置信度不变，结果永不增加
func (p DecayPolicy) DecayedConfidence(confidence float64, anchor, now time.Time) float64 {
	intervals := p.Intervals(anchor, now)
	if intervals == 0 || p.Rate <= 0 {
		return confidence
	}
	return confidence * math.Pow(1-p.Rate, float64(intervals))
}

// EMAAlpha 关系强度指数移动平均的平滑系数
// 防止重复观察导致强度无界增长
const EMAAlpha = 0.3

// UpdatedStrength 按 EMA 向观测值收敛的强度更新
func UpdatedStrength(current, observed float64) float64 {
	next := current + EMAAlpha*(observed-current)
	if next > 1 {
		return 1
	}
	if next < 0 {
		return 0
	}
	return next
}

// SearchFilter 模式搜索过滤条件
type SearchFilter struct {
	Category      string
	MinConfidence float64
}

// RankScore 搜索排序键
// 置信度单调：在其他条件相同的情况下，更高的置信度永远不会排在更低之后
func RankScore(matchScore, confidence float64, usageCount int) float64 {
	return matchScore * (0.5 + 0.5*confidence) * (1 + math.Log1p(float64(usageCount))/10)
}

// SweepResult 衰减清扫结果
type SweepResult struct {
	DecayedCount int `json:"decayed_count"`
	PrunedCount  int `json:"pruned_count"`
}
