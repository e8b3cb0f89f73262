package contextengine

import (
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func newTestScorer() *Scorer {
	return NewScorer(&config.WorkingMemConfig{RecencyHalfLife: 6 * time.Hour})
}

func TestScorer_ScoreTurnRecencyDecay(t *testing.T) {
	s := newTestScorer()
	req := &contextengine.Request{UserRequest: "database pool"}

	recent := &conversation.Turn{
		Content:   "tune the database pool",
		Timestamp: time.Now(),
	}
	old := &conversation.Turn{
		Content:   "tune the database pool",
		Timestamp: time.Now().Add(-12 * time.Hour),
	}

	scoreRecent := s.ScoreTurn(req, recent)
	scoreOld := s.ScoreTurn(req, old)

	// 相同内容下越新分越高；两个半衰期后约为 1/4
	assert.Greater(t, scoreRecent, scoreOld)
	assert.InDelta(t, scoreRecent/4, scoreOld, 0.05)
}

func TestScorer_ScoreTurnEntityOverlap(t *testing.T) {
	s := newTestScorer()
	req := &contextengine.Request{UserRequest: "auth.go"}

	withEntity := &conversation.Turn{
		Content:   "refactored the login flow",
		Entities:  []string{"auth.go"},
		Timestamp: time.Now(),
	}
	without := &conversation.Turn{
		Content:   "refactored the login flow",
		Timestamp: time.Now(),
	}

	assert.Greater(t, s.ScoreTurn(req, withEntity), s.ScoreTurn(req, without))
	assert.Equal(t, 0.0, s.ScoreTurn(req, without))
}

func TestScorer_ScorePatternWeighting(t *testing.T) {
	s := newTestScorer()
	req := &contextengine.Request{UserRequest: "retry backoff"}

	fullMatch := &knowledge.Pattern{Title: "retry with backoff", Confidence: 1.0}
	noMatch := &knowledge.Pattern{Title: "unrelated", Confidence: 1.0}

	// 0.6×match + 0.4×confidence
	assert.InDelta(t, 1.0, s.ScorePattern(req, fullMatch), 1e-9)
	assert.InDelta(t, 0.4, s.ScorePattern(req, noMatch), 1e-9)
}

func TestScorer_ScoreSignal(t *testing.T) {
	s := newTestScorer()
	req := &contextengine.Request{
		UserRequest:  "fix the handler",
		CurrentFiles: []string{"internal/api/handler.go"},
	}

	referenced := &signal.Snapshot{
		Key:     "internal/api/handler.go",
		Payload: map[string]interface{}{"churn_score": 1.0},
	}
	global := &signal.Snapshot{Key: signal.GlobalKey, Payload: map[string]interface{}{}}
	unrelated := &signal.Snapshot{Key: "docs/readme.md", Payload: map[string]interface{}{}}

	scoreRef := s.ScoreSignal(req, referenced)
	scoreGlobal := s.ScoreSignal(req, global)
	scoreUnrelated := s.ScoreSignal(req, unrelated)

	assert.Greater(t, scoreRef, scoreGlobal)
	assert.Greater(t, scoreGlobal, scoreUnrelated)
	assert.LessOrEqual(t, scoreRef, 1.0)
}

func TestTierRelevance_TopKMean(t *testing.T) {
	// top-3 均值
	assert.InDelta(t, 0.8, TierRelevance([]float64{0.9, 0.8, 0.7, 0.1, 0.1}), 1e-9)
	// 不足 3 个取全部均值
	assert.InDelta(t, 0.5, TierRelevance([]float64{0.5}), 1e-9)
	// 空层相关性为 0
	assert.Equal(t, 0.0, TierRelevance(nil))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.5))
	assert.Equal(t, 1.0, clamp01(1.5))
	assert.Equal(t, 0.7, clamp01(0.7))
}
