package contextengine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/domain/conversation"
	domainKnowledge "github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, *testEngine) {
	engine := newTestEngine(t)

	orch := NewOrchestrator(
		engine.workingmem,
		engine.knowledge,
		engine.signals,
		newTestScorer(),
		NewAllocator(&token.CharEstimator{}),
		engine.monitor,
		&config.OrchestratorConfig{
			TierTimeout:    2 * time.Second,
			BundleTTL:      5 * time.Minute,
			DefaultBudget:  4000,
			CandidateLimit: 50,
		},
	)
	return orch, engine
}

// seedEngine 填充三层数据
func seedEngine(t *testing.T, engine *testEngine) {
	t.Helper()

	_, err := engine.workingmem.Append(&conversation.Turn{
		ConversationID: "conv-1",
		Role:           conversation.RoleUser,
		Content:        "how should I handle database retries",
	})
	require.NoError(t, err)

	require.NoError(t, engine.knowledge.StorePattern(&domainKnowledge.Pattern{
		Title:      "database retry with backoff",
		Category:   "error_handling",
		Confidence: 0.9,
	}))

	engine.signals.Report("internal/db/retry.go", map[string]interface{}{"churn_score": 0.8}, 3600)
}

func TestOrchestrator_ValidationErrors(t *testing.T) {
	orch, _ := newTestOrchestrator(t)
	ctx := context.Background()

	_, err := orch.BuildContext(ctx, &contextengine.Request{UserRequest: "  "})
	assert.ErrorIs(t, err, contextengine.ErrEmptyRequest)

	_, err = orch.BuildContext(ctx, &contextengine.Request{
		UserRequest:      "valid",
		TotalTokenBudget: -1,
	})
	assert.ErrorIs(t, err, contextengine.ErrInvalidBudget)
}

func TestOrchestrator_BuildContextHappyPath(t *testing.T) {
	orch, engine := newTestOrchestrator(t)
	seedEngine(t, engine)

	bundle, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest:      "database retries",
		CurrentFiles:     []string{"internal/db/retry.go"},
		TotalTokenBudget: 1000,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, bundle.Tier1Items)
	assert.NotEmpty(t, bundle.Tier2Items)
	assert.NotEmpty(t, bundle.Tier3Items)
	assert.False(t, bundle.GeneratedAt.IsZero())

	// 预算报告：分配之和等于总预算，用量不超过分配
	require.NotNil(t, bundle.BudgetReport)
	allocatedSum := 0
	for name, tierBudget := range bundle.BudgetReport.Tiers {
		allocatedSum += tierBudget.Allocated
		assert.LessOrEqual(t, tierBudget.Used, tierBudget.Allocated, "tier %s over budget", name)
	}
	assert.Equal(t, 1000, allocatedSum)

	// 质量报告随组合返回
	require.NotNil(t, bundle.QualityReport)
	assert.Len(t, bundle.QualityReport.Tiers, 3)

	// 条目携带来源层、相关性和成本
	for _, item := range bundle.Tier2Items {
		assert.Equal(t, contextengine.TierKnowledge, item.SourceTier)
		assert.NotNil(t, item.Pattern)
		assert.Greater(t, item.RelevanceScore, 0.0)
		assert.Greater(t, item.TokenCost, 0)
	}
}

func TestOrchestrator_DefaultBudget(t *testing.T) {
	orch, engine := newTestOrchestrator(t)
	seedEngine(t, engine)

	bundle, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest: "database retries",
	})
	require.NoError(t, err)
	assert.Equal(t, 4000, bundle.BudgetReport.TotalBudget)
}

func TestOrchestrator_PartialFailureTolerance(t *testing.T) {
	orch, engine := newTestOrchestrator(t)
	seedEngine(t, engine)

	// 指定不存在的对话使 Tier 1 查询失败：调用仍然成功，
	// 失败层记空并产生告警
	bundle, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest:      "database retries",
		ConversationID:   "missing-conversation",
		TotalTokenBudget: 1000,
	})
	require.NoError(t, err)

	assert.Empty(t, bundle.Tier1Items)
	assert.NotEmpty(t, bundle.Tier2Items)
	assert.NotEmpty(t, bundle.Warnings)

	found := false
	for _, w := range bundle.Warnings {
		if strings.Contains(w, "working_memory") && strings.Contains(w, "unavailable") {
			found = true
		}
	}
	assert.True(t, found, "expected a working_memory unavailable warning, got %v", bundle.Warnings)
}

func TestOrchestrator_BundleCacheHitAndInvalidation(t *testing.T) {
	orch, engine := newTestOrchestrator(t)
	seedEngine(t, engine)

	req := &contextengine.Request{UserRequest: "database retries", TotalTokenBudget: 1000}

	first, err := orch.BuildContext(context.Background(), req)
	require.NoError(t, err)

	// 无写入时命中缓存，返回同一个组合
	second, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest: "database retries", TotalTokenBudget: 1000,
	})
	require.NoError(t, err)
	assert.Same(t, first, second)

	// 任意一层写入后指纹变化，缓存失配
	engine.signals.Report("internal/db/pool.go", map[string]interface{}{"churn_score": 0.2}, 3600)

	third, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest: "database retries", TotalTokenBudget: 1000,
	})
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestOrchestrator_TruncationUnderTightBudget(t *testing.T) {
	orch, engine := newTestOrchestrator(t)

	// 大量长内容轮次 + 极小预算：必然截断且有告警
	for i := 0; i < 10; i++ {
		_, err := engine.workingmem.Append(&conversation.Turn{
			ConversationID: "conv-big",
			Role:           conversation.RoleUser,
			Content:        "database retries and connection pooling with exponential backoff strategies considered in depth",
		})
		require.NoError(t, err)
	}

	bundle, err := orch.BuildContext(context.Background(), &contextengine.Request{
		UserRequest:      "database retries",
		TotalTokenBudget: 30,
	})
	require.NoError(t, err)

	tier1 := bundle.BudgetReport.Tiers["working_memory"]
	require.NotNil(t, tier1)
	assert.Greater(t, tier1.DroppedItems, 0)
	assert.LessOrEqual(t, tier1.Used, tier1.Allocated)
	assert.NotEmpty(t, bundle.Warnings)
}

func TestOrchestrator_ContextCancellation(t *testing.T) {
	orch, engine := newTestOrchestrator(t)
	seedEngine(t, engine)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// 已取消的 ctx：各层超时立即触发，调用降级成功而不是挂起
	bundle, err := orch.BuildContext(ctx, &contextengine.Request{
		UserRequest:      "database retries",
		TotalTokenBudget: 1000,
	})
	require.NoError(t, err)
	assert.NotNil(t, bundle)
}
