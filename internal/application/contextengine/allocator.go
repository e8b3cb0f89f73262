package contextengine

import (
	"fmt"
	"sort"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/infrastructure/token"
)

// allocationTiers 分配涉及的三个层级，按编号序
var allocationTiers = []contextengine.Tier{
	contextengine.TierWorkingMemory,
	contextengine.TierKnowledge,
	contextengine.TierSignals,
}

// Allocator Token 预算分配器
type Allocator struct {
	estimator token.Estimator
}

// NewAllocator 创建分配器
func NewAllocator(estimator token.Estimator) *Allocator {
	return &Allocator{estimator: estimator}
}

// Allocate 按各层相关性分配总预算
// 权重归一化后取整，余数给相关性最高的层；分配之和恒等于 total
func (a *Allocator) Allocate(total int, relevance map[contextengine.Tier]float64) (map[contextengine.Tier]int, error) {
	if total <= 0 {
		return nil, contextengine.ErrInvalidBudget
	}

	sum := 0.0
	for _, tier := range allocationTiers {
		if relevance[tier] < 0 {
			relevance[tier] = 0
		}
		sum += relevance[tier]
	}

	weights := make(map[contextengine.Tier]float64, len(allocationTiers))
	if sum == 0 {
		// 全零相关性退化为均分
		for _, tier := range allocationTiers {
			weights[tier] = 1.0 / float64(len(allocationTiers))
		}
	} else {
		for _, tier := range allocationTiers {
			weights[tier] = relevance[tier] / sum
		}
	}

	budgets := make(map[contextengine.Tier]int, len(allocationTiers))
	allocated := 0
	for _, tier := range allocationTiers {
		// 加小量抵消浮点误差，避免 1/3×300 这类整除情形被多截一个 token
		b := int(weights[tier]*float64(total) + 1e-9)
		budgets[tier] = b
		allocated += b
	}

	// 取整余数给相关性最高的层，保证分配之和恒等于 total
	if remainder := total - allocated; remainder > 0 {
		best := allocationTiers[0]
		for _, tier := range allocationTiers[1:] {
			if relevance[tier] > relevance[best] {
				best = tier
			}
		}
		budgets[best] += remainder
	}

	return budgets, nil
}

// CostOf 估算条目的 Token 成本
func (a *Allocator) CostOf(item *contextengine.Item) int {
	return a.estimator.CountTokens(itemText(item))
}

// itemText 条目参与成本核算的文本
func itemText(item *contextengine.Item) string {
	switch {
	case item.Turn != nil:
		return item.Turn.Content
	case item.Pattern != nil:
		text := item.Pattern.Title
		for k, v := range item.Pattern.Context {
			text += fmt.Sprintf(" %s=%v", k, v)
		}
		return text
	case item.Snapshot != nil:
		text := item.Snapshot.Key
		for k, v := range item.Snapshot.Payload {
			text += fmt.Sprintf(" %s=%v", k, v)
		}
		return text
	}
	return ""
}

// Truncate 截断到预算以内：优先丢弃相关性最低的条目
// 返回保留条目（按相关性降序）、丢弃数和告警
func (a *Allocator) Truncate(items []*contextengine.Item, budget int) (kept []*contextengine.Item, dropped int, droppedTokens int, warnings []string) {
	if budget <= 0 {
		for _, item := range items {
			droppedTokens += item.TokenCost
		}
		if len(items) > 0 {
			warnings = append(warnings, fmt.Sprintf("tier %s received no budget, dropped %d items (%d tokens)",
				items[0].SourceTier, len(items), droppedTokens))
		}
		return nil, len(items), droppedTokens, warnings
	}

	kept = make([]*contextengine.Item, len(items))
	copy(kept, items)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].RelevanceScore > kept[j].RelevanceScore
	})

	used := 0
	for _, item := range kept {
		used += item.TokenCost
	}

	for used > budget && len(kept) > 0 {
		last := kept[len(kept)-1]
		kept = kept[:len(kept)-1]
		used -= last.TokenCost
		dropped++
		droppedTokens += last.TokenCost
		warnings = append(warnings, fmt.Sprintf("dropped %s item %s (%d tokens) over tier budget",
			last.SourceTier, last.ID, last.TokenCost))
	}

	return kept, dropped, droppedTokens, warnings
}

// ComplianceReport 预算合规报告
type ComplianceReport struct {
	Compliant bool           `json:"compliant"`
	Overages  map[string]int `json:"overages,omitempty"`
}

// CheckCompliance 检查各层实际用量是否超出分配
func (a *Allocator) CheckCompliance(usage, budgets map[contextengine.Tier]int) *ComplianceReport {
	report := &ComplianceReport{Compliant: true, Overages: make(map[string]int)}

	for _, tier := range allocationTiers {
		if over := usage[tier] - budgets[tier]; over > 0 {
			report.Compliant = false
			report.Overages[tier.String()] = over
		}
	}

	return report
}
