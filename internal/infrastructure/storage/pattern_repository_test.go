package storage

import (
	"database/sql"
	"testing"
	"time"

	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKnowledgeDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := OpenDBAtPath(":memory:")
	require.NoError(t, err)
	require.NoError(t, InitSchema(db))
	t.Cleanup(func() { db.Close() })

	return db
}

func TestPatternRepository_SaveAndFind(t *testing.T) {
	repo := NewPatternRepository(newKnowledgeDB(t))

	p := &knowledge.Pattern{
		Title:      "prefer table-driven tests",
		Category:   "testing",
		Confidence: 0.8,
		Context:    map[string]interface{}{"language": "go"},
		CreatedAt:  time.Now(),
		LastUsedAt: time.Now(),
	}
	require.NoError(t, repo.Save(p))
	require.NotEmpty(t, p.ID, "保存时应分配 ID")

	found, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "prefer table-driven tests", found.Title)
	assert.Equal(t, 0.8, found.Confidence)
	assert.Equal(t, "go", found.Context["language"])
}

func TestPatternRepository_UpdateConfidenceAndBoost(t *testing.T) {
	repo := NewPatternRepository(newKnowledgeDB(t))

	p := &knowledge.Pattern{
		Title:      "wrap errors with context",
		Confidence: 0.6,
		CreatedAt:  time.Now(),
		LastUsedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, repo.Save(p))

	require.NoError(t, repo.UpdateConfidence(p.ID, 0.55))

	found, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.55, found.Confidence, 1e-9)

	now := time.Now()
	require.NoError(t, repo.Boost(p.ID, 0.65, now))

	found, err = repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.65, found.Confidence, 1e-9)
	assert.Equal(t, 1, found.UsageCount)
	assert.WithinDuration(t, now, found.LastUsedAt, time.Second)

	// 不存在的模式
	assert.ErrorIs(t, repo.UpdateConfidence("missing", 0.5), knowledge.ErrPatternNotFound)
	assert.ErrorIs(t, repo.Boost("missing", 0.5, now), knowledge.ErrPatternNotFound)
}

func TestPatternRepository_Delete(t *testing.T) {
	repo := NewPatternRepository(newKnowledgeDB(t))

	p := &knowledge.Pattern{Title: "to be pruned", Confidence: 0.2, CreatedAt: time.Now(), LastUsedAt: time.Now()}
	require.NoError(t, repo.Save(p))
	require.NoError(t, repo.Delete(p.ID))

	found, err := repo.FindByID(p.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRelationshipRepository_EMAUpsert(t *testing.T) {
	repo := NewRelationshipRepository(newKnowledgeDB(t))

	// 首次观察
	rel := &knowledge.Relationship{
		Subject:          "internal/api/handler.go",
		Object:           "internal/api/routes.go",
		RelationshipType: "co_change",
		Strength:         0.5,
		ObservationCount: 1,
		LastObservedAt:   time.Now(),
	}
	require.NoError(t, repo.Save(rel))

	found, err := repo.Find("internal/api/handler.go", "internal/api/routes.go", "co_change")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.ObservationCount)

	// 重复观察走 EMA 更新后再保存
	found.Strength = knowledge.UpdatedStrength(found.Strength, 1.0)
	found.ObservationCount++
	require.NoError(t, repo.Save(found))

	again, err := repo.Find("internal/api/handler.go", "internal/api/routes.go", "co_change")
	require.NoError(t, err)
	assert.Equal(t, 2, again.ObservationCount)
	assert.InDelta(t, 0.65, again.Strength, 1e-9)
}

func TestRelationshipRepository_FindByEntity(t *testing.T) {
	repo := NewRelationshipRepository(newKnowledgeDB(t))

	now := time.Now()
	require.NoError(t, repo.Save(&knowledge.Relationship{
		Subject: "a.go", Object: "b.go", RelationshipType: "co_change",
		Strength: 0.9, ObservationCount: 5, LastObservedAt: now,
	}))
	require.NoError(t, repo.Save(&knowledge.Relationship{
		Subject: "b.go", Object: "c.go", RelationshipType: "imports",
		Strength: 0.4, ObservationCount: 2, LastObservedAt: now,
	}))

	// b.go 出现在两条边的任一端
	rels, err := repo.FindByEntity("b.go", nil, 0)
	require.NoError(t, err)
	assert.Len(t, rels, 2)

	// 类型 + 最小强度过滤
	rels, err = repo.FindByEntity("b.go", []string{"co_change"}, 0.5)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "a.go", rels[0].Subject)
}

func TestPatternRepository_CorruptRowSurfacesError(t *testing.T) {
	db := newKnowledgeDB(t)
	repo := NewPatternRepository(db)

	// confidence 列损坏时查询报错，避免返回残缺结果集
	_, err := db.Exec(`INSERT INTO patterns
		(id, title, category, confidence, context, created_at, last_used_at, usage_count, applied_in_conversation_ids)
		VALUES ('pat-bad', 't', 'c', 'corrupt', NULL, 0, 0, 0, NULL)`)
	require.NoError(t, err)

	_, err = repo.FindAll()
	assert.Error(t, err)
}

func TestRelationshipRepository_CorruptRowSurfacesError(t *testing.T) {
	db := newKnowledgeDB(t)
	repo := NewRelationshipRepository(db)

	_, err := db.Exec(`INSERT INTO relationships
		(id, subject, object, relationship_type, strength, observation_count, last_observed_at)
		VALUES ('rel-bad', 'a.go', 'b.go', 'often_modified_with', 'corrupt', 1, 0)`)
	require.NoError(t, err)

	_, err = repo.FindByEntity("a.go", nil, 0)
	assert.Error(t, err)
}
