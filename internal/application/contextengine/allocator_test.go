package contextengine

import (
	"testing"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/infrastructure/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator() *Allocator {
	// 字符估算器结果确定，便于断言
	return NewAllocator(&token.CharEstimator{})
}

func TestAllocator_AllocateProportional(t *testing.T) {
	a := newTestAllocator()

	// 相关性 {0.9, 0.6, 0.3}，总预算 500：
	// 权重 0.5/0.333/0.167，取整后余数给相关性最高的层
	budgets, err := a.Allocate(500, map[contextengine.Tier]float64{
		contextengine.TierWorkingMemory: 0.9,
		contextengine.TierKnowledge:     0.6,
		contextengine.TierSignals:       0.3,
	})
	require.NoError(t, err)

	assert.Equal(t, 251, budgets[contextengine.TierWorkingMemory])
	assert.Equal(t, 166, budgets[contextengine.TierKnowledge])
	assert.Equal(t, 83, budgets[contextengine.TierSignals])

	// 分配之和恒等于总预算
	sum := 0
	for _, b := range budgets {
		sum += b
	}
	assert.Equal(t, 500, sum)
}

func TestAllocator_AllocateConservation(t *testing.T) {
	a := newTestAllocator()

	// 任意相关性组合下分配之和都等于总预算，且无负值
	cases := []map[contextengine.Tier]float64{
		{contextengine.TierWorkingMemory: 0.1, contextengine.TierKnowledge: 0.1, contextengine.TierSignals: 0.1},
		{contextengine.TierWorkingMemory: 1.0, contextengine.TierKnowledge: 0, contextengine.TierSignals: 0},
		{contextengine.TierWorkingMemory: 0.33, contextengine.TierKnowledge: 0.77, contextengine.TierSignals: 0.55},
		{contextengine.TierWorkingMemory: 0, contextengine.TierKnowledge: 0, contextengine.TierSignals: 0.01},
	}

	for _, relevance := range cases {
		for _, total := range []int{1, 7, 100, 999, 4000} {
			budgets, err := a.Allocate(total, relevance)
			require.NoError(t, err)

			sum := 0
			for _, b := range budgets {
				assert.GreaterOrEqual(t, b, 0)
				sum += b
			}
			assert.Equal(t, total, sum, "total=%d relevance=%v", total, relevance)
		}
	}
}

func TestAllocator_AllocateEqualSplitWhenAllZero(t *testing.T) {
	a := newTestAllocator()

	budgets, err := a.Allocate(300, map[contextengine.Tier]float64{})
	require.NoError(t, err)

	assert.Equal(t, 100, budgets[contextengine.TierWorkingMemory])
	assert.Equal(t, 100, budgets[contextengine.TierKnowledge])
	assert.Equal(t, 100, budgets[contextengine.TierSignals])
}

func TestAllocator_AllocateInvalidBudget(t *testing.T) {
	a := newTestAllocator()

	_, err := a.Allocate(0, nil)
	assert.ErrorIs(t, err, contextengine.ErrInvalidBudget)

	_, err = a.Allocate(-100, nil)
	assert.ErrorIs(t, err, contextengine.ErrInvalidBudget)
}

func makeItem(id string, relevance float64, tokens int) *contextengine.Item {
	return &contextengine.Item{
		ID:             id,
		SourceTier:     contextengine.TierWorkingMemory,
		RelevanceScore: relevance,
		TokenCost:      tokens,
		Turn:           &conversation.Turn{ID: id},
	}
}

func TestAllocator_TruncateDropsLowestRelevanceFirst(t *testing.T) {
	a := newTestAllocator()

	items := []*contextengine.Item{
		makeItem("high", 0.9, 100),
		makeItem("mid", 0.5, 100),
		makeItem("low", 0.1, 100),
	}

	kept, dropped, droppedTokens, warnings := a.Truncate(items, 250)

	require.Len(t, kept, 2)
	assert.Equal(t, "high", kept[0].ID)
	assert.Equal(t, "mid", kept[1].ID)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 100, droppedTokens)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "low")
}

func TestAllocator_TruncateNoBudget(t *testing.T) {
	a := newTestAllocator()

	items := []*contextengine.Item{makeItem("a", 0.9, 50)}
	kept, dropped, droppedTokens, warnings := a.Truncate(items, 0)

	assert.Empty(t, kept)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 50, droppedTokens)
	assert.NotEmpty(t, warnings)
}

func TestAllocator_TruncateFitsWithinBudget(t *testing.T) {
	a := newTestAllocator()

	items := []*contextengine.Item{
		makeItem("a", 0.9, 50),
		makeItem("b", 0.5, 50),
	}

	kept, dropped, droppedTokens, warnings := a.Truncate(items, 100)
	assert.Len(t, kept, 2)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, 0, droppedTokens)
	assert.Empty(t, warnings)
}

func TestAllocator_CheckCompliance(t *testing.T) {
	a := newTestAllocator()

	budgets := map[contextengine.Tier]int{
		contextengine.TierWorkingMemory: 100,
		contextengine.TierKnowledge:     100,
		contextengine.TierSignals:       100,
	}

	report := a.CheckCompliance(map[contextengine.Tier]int{
		contextengine.TierWorkingMemory: 90,
		contextengine.TierKnowledge:     100,
		contextengine.TierSignals:       10,
	}, budgets)
	assert.True(t, report.Compliant)
	assert.Empty(t, report.Overages)

	report = a.CheckCompliance(map[contextengine.Tier]int{
		contextengine.TierWorkingMemory: 130,
		contextengine.TierKnowledge:     100,
		contextengine.TierSignals:       10,
	}, budgets)
	assert.False(t, report.Compliant)
	assert.Equal(t, 30, report.Overages["working_memory"])
}
