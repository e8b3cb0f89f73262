package contextengine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/memtier/backend/internal/domain/contextengine"
	domainKnowledge "github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// Orchestrator 上下文编排器
// 对三层做带超时的并行扇出，打分、分配预算、截断、合并，
// 单层失败降级为告警而不是失败整个请求
type Orchestrator struct {
	workingmem *workingmem.Service
	knowledge  *knowledge.Service
	signals    *signals.Service
	scorer     *Scorer
	allocator  *Allocator
	monitor    *Monitor
	config     *config.OrchestratorConfig
	cache      *bundleCache
	logger     *slog.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	workingmemSvc *workingmem.Service,
	knowledgeSvc *knowledge.Service,
	signalsSvc *signals.Service,
	scorer *Scorer,
	allocator *Allocator,
	monitor *Monitor,
	cfg *config.OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		workingmem: workingmemSvc,
		knowledge:  knowledgeSvc,
		signals:    signalsSvc,
		scorer:     scorer,
		allocator:  allocator,
		monitor:    monitor,
		config:     cfg,
		cache:      newBundleCache(cfg.BundleTTL),
		logger:     log.NewModuleLogger("contextengine", "orchestrator"),
	}
}

// tierResult 扇出阶段单层结果
type tierResult struct {
	tier    contextengine.Tier
	items   []*contextengine.Item
	err     error
	elapsed time.Duration
}

// BuildContext 构建上下文组合
// 只有验证错误（空请求、非法预算）会使调用失败
func (o *Orchestrator) BuildContext(ctx context.Context, req *contextengine.Request) (*contextengine.Bundle, error) {
	// INIT：验证与默认值
	if req == nil || strings.TrimSpace(req.UserRequest) == "" {
		return nil, contextengine.ErrEmptyRequest
	}
	if req.TotalTokenBudget < 0 {
		return nil, contextengine.ErrInvalidBudget
	}
	if req.TotalTokenBudget == 0 {
		req.TotalTokenBudget = o.config.DefaultBudget
	}
	if req.TotalTokenBudget <= 0 {
		return nil, contextengine.ErrInvalidBudget
	}

	// CACHE：指纹含各层状态版本，任何写入使旧结果失配
	key := fingerprint(req, o.workingmem.StateVersion(), o.knowledge.StateVersion(), o.signals.StateVersion())
	if bundle, ok := o.cache.get(key); ok {
		o.logger.Debug("Bundle cache hit", "fingerprint", key[:12])
		return bundle, nil
	}

	warnings := make([]string, 0)

	// FANOUT：三层并行查询，各自带超时
	results := o.fanout(ctx, req)

	itemsByTier := make(map[contextengine.Tier][]*contextengine.Item, 3)
	for _, result := range results {
		o.monitor.RecordLatency(result.tier, result.elapsed)

		if result.err != nil {
			// 部分失败容忍：失败层记空并告警
			warnings = append(warnings, fmt.Sprintf("tier %s unavailable: %v", result.tier, result.err))
			itemsByTier[result.tier] = nil
			continue
		}
		itemsByTier[result.tier] = result.items
	}

	// SCORE + 成本估算
	relevance := make(map[contextengine.Tier]float64, 3)
	for tier, items := range itemsByTier {
		scores := make([]float64, 0, len(items))
		for _, item := range items {
			item.RelevanceScore = o.scoreItem(req, item)
			item.TokenCost = o.allocator.CostOf(item)
			scores = append(scores, item.RelevanceScore)
		}
		relevance[tier] = TierRelevance(scores)
	}

	// ALLOCATE
	budgets, err := o.allocator.Allocate(req.TotalTokenBudget, relevance)
	if err != nil {
		return nil, err
	}

	// MERGE_DEDUPE（层内按 ID 去重，不做跨层去重）+ TRUNCATE
	budgetReport := &contextengine.BudgetReport{
		TotalBudget: req.TotalTokenBudget,
		Tiers:       make(map[string]*contextengine.TierBudget, 3),
	}

	finalItems := make(map[contextengine.Tier][]*contextengine.Item, 3)
	for _, tier := range allocationTiers {
		deduped := dedupeByID(itemsByTier[tier])

		kept, dropped, droppedTokens, truncWarnings := o.allocator.Truncate(deduped, budgets[tier])
		warnings = append(warnings, truncWarnings...)

		used := 0
		for _, item := range kept {
			used += item.TokenCost
		}

		finalItems[tier] = kept
		budgetReport.Tiers[tier.String()] = &contextengine.TierBudget{
			Allocated:     budgets[tier],
			Used:          used,
			DroppedItems:  dropped,
			DroppedTokens: droppedTokens,
		}
	}
	budgetReport.Warnings = warnings

	// ANNOTATE：质量评估只做标注，从不阻塞
	bundle := &contextengine.Bundle{
		Tier1Items:    finalItems[contextengine.TierWorkingMemory],
		Tier2Items:    finalItems[contextengine.TierKnowledge],
		Tier3Items:    finalItems[contextengine.TierSignals],
		BudgetReport:  budgetReport,
		QualityReport: o.monitor.AssessAll(),
		Warnings:      warnings,
		GeneratedAt:   time.Now(),
	}

	o.cache.put(key, bundle)

	o.logger.Info("Context bundle built",
		"items", bundle.ItemCount(),
		"budget", req.TotalTokenBudget,
		"warnings", len(warnings),
	)

	return bundle, nil
}

// fanout 并行查询三层，每层独立超时
func (o *Orchestrator) fanout(ctx context.Context, req *contextengine.Request) []tierResult {
	timeout := o.config.TierTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	resultCh := make(chan tierResult, 3)

	queries := map[contextengine.Tier]func(*contextengine.Request) ([]*contextengine.Item, error){
		contextengine.TierWorkingMemory: o.queryWorkingMemory,
		contextengine.TierKnowledge:     o.queryKnowledge,
		contextengine.TierSignals:       o.querySignals,
	}

	for tier, query := range queries {
		go func(tier contextengine.Tier, query func(*contextengine.Request) ([]*contextengine.Item, error)) {
			start := time.Now()

			tierCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan tierResult, 1)
			go func() {
				items, err := query(req)
				done <- tierResult{tier: tier, items: items, err: err}
			}()

			select {
			case result := <-done:
				result.elapsed = time.Since(start)
				resultCh <- result
			case <-tierCtx.Done():
				resultCh <- tierResult{
					tier:    tier,
					err:     fmt.Errorf("%w: %v", contextengine.ErrTierUnavailable, tierCtx.Err()),
					elapsed: time.Since(start),
				}
			}
		}(tier, query)
	}

	results := make([]tierResult, 0, 3)
	for i := 0; i < 3; i++ {
		results = append(results, <-resultCh)
	}
	return results
}

// queryWorkingMemory Tier 1 候选：指定对话的上下文或全局最近轮次
func (o *Orchestrator) queryWorkingMemory(req *contextengine.Request) ([]*contextengine.Item, error) {
	limit := o.config.CandidateLimit
	if limit <= 0 {
		limit = 50
	}

	if req.ConversationID != "" {
		convCtx, err := o.workingmem.GetContext(req.ConversationID)
		if err != nil {
			return nil, err
		}
		items := make([]*contextengine.Item, 0, len(convCtx.PriorTurns))
		for _, turn := range convCtx.PriorTurns {
			items = append(items, &contextengine.Item{
				ID:         turn.ID,
				SourceTier: contextengine.TierWorkingMemory,
				Turn:       turn,
			})
		}
		return items, nil
	}

	recent, err := o.workingmem.Recent(limit)
	if err != nil {
		return nil, err
	}
	items := make([]*contextengine.Item, 0, len(recent))
	for _, turn := range recent {
		items = append(items, &contextengine.Item{
			ID:         turn.ID,
			SourceTier: contextengine.TierWorkingMemory,
			Turn:       turn,
		})
	}
	return items, nil
}

// queryKnowledge Tier 2 候选：按用户请求搜索模式
func (o *Orchestrator) queryKnowledge(req *contextengine.Request) ([]*contextengine.Item, error) {
	limit := o.config.CandidateLimit
	if limit <= 0 {
		limit = 50
	}

	patterns, err := o.knowledge.SearchPatterns(req.UserRequest, domainKnowledge.SearchFilter{}, limit)
	if err != nil {
		return nil, err
	}

	items := make([]*contextengine.Item, 0, len(patterns))
	for _, p := range patterns {
		items = append(items, &contextengine.Item{
			ID:         p.ID,
			SourceTier: contextengine.TierKnowledge,
			Pattern:    p,
		})
	}
	return items, nil
}

// querySignals Tier 3 候选：全部新鲜快照
func (o *Orchestrator) querySignals(_ *contextengine.Request) ([]*contextengine.Item, error) {
	snapshots := o.signals.Snapshots()

	items := make([]*contextengine.Item, 0, len(snapshots))
	for _, snap := range snapshots {
		items = append(items, &contextengine.Item{
			ID:         snap.Key,
			SourceTier: contextengine.TierSignals,
			Snapshot:   snap,
		})
	}
	return items, nil
}

// scoreItem 按来源层分发打分
func (o *Orchestrator) scoreItem(req *contextengine.Request, item *contextengine.Item) float64 {
	switch {
	case item.Turn != nil:
		return o.scorer.ScoreTurn(req, item.Turn)
	case item.Pattern != nil:
		return o.scorer.ScorePattern(req, item.Pattern)
	case item.Snapshot != nil:
		return o.scorer.ScoreSignal(req, item.Snapshot)
	}
	return 0
}

// dedupeByID 层内按 ID 去重，保留首个
func dedupeByID(items []*contextengine.Item) []*contextengine.Item {
	if len(items) <= 1 {
		return items
	}

	seen := make(map[string]bool, len(items))
	deduped := make([]*contextengine.Item, 0, len(items))
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		deduped = append(deduped, item)
	}
	return deduped
}
