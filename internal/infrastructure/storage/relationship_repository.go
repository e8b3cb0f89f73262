package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memtier/backend/internal/domain/knowledge"
)

// relationshipRepository Tier 2 关系 SQLite 仓储实现
type relationshipRepository struct {
	db *sql.DB
}

// NewRelationshipRepository 创建关系仓储实例
func NewRelationshipRepository(db *sql.DB) knowledge.RelationshipRepository {
	return &relationshipRepository{db: db}
}

// Find 按 (subject, object, type) 精确查找
func (r *relationshipRepository) Find(subject, object, relationshipType string) (*knowledge.Relationship, error) {
	query := `
		SELECT id, subject, object, relationship_type, strength, observation_count, last_observed_at
		FROM relationships
		WHERE subject = ? AND object = ? AND relationship_type = ?`

	var rel knowledge.Relationship
	var lastObserved int64

	err := r.db.QueryRow(query, subject, object, relationshipType).Scan(
		&rel.ID,
		&rel.Subject,
		&rel.Object,
		&rel.RelationshipType,
		&rel.Strength,
		&rel.ObservationCount,
		&lastObserved,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query relationship: %w", err)
	}

	rel.LastObservedAt = time.UnixMilli(lastObserved)
	return &rel, nil
}

// Save 保存或更新关系
func (r *relationshipRepository) Save(rel *knowledge.Relationship) error {
	if rel.ID == "" {
		rel.ID = uuid.New().String()
	}

	query := `
		INSERT OR REPLACE INTO relationships
		(id, subject, object, relationship_type, strength, observation_count, last_observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		rel.ID,
		rel.Subject,
		rel.Object,
		rel.RelationshipType,
		rel.Strength,
		rel.ObservationCount,
		rel.LastObservedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save relationship: %w", err)
	}

	return nil
}

// FindByEntity 查找实体参与的关系（subject 或 object 任一端）
func (r *relationshipRepository) FindByEntity(entity string, types []string, minStrength float64) ([]*knowledge.Relationship, error) {
	query := `
		SELECT id, subject, object, relationship_type, strength, observation_count, last_observed_at
		FROM relationships
		WHERE (subject = ? OR object = ?) AND strength >= ?`
	args := []interface{}{entity, entity, minStrength}

	if len(types) > 0 {
		placeholders := strings.Repeat("?,", len(types))
		query += fmt.Sprintf(" AND relationship_type IN (%s)", strings.TrimSuffix(placeholders, ","))
		for _, t := range types {
			args = append(args, t)
		}
	}

	query += ` ORDER BY strength DESC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	var rels []*knowledge.Relationship
	for rows.Next() {
		var rel knowledge.Relationship
		var lastObserved int64

		if err := rows.Scan(
			&rel.ID,
			&rel.Subject,
			&rel.Object,
			&rel.RelationshipType,
			&rel.Strength,
			&rel.ObservationCount,
			&lastObserved,
		); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}

		rel.LastObservedAt = time.UnixMilli(lastObserved)
		rels = append(rels, &rel)
	}

	return rels, rows.Err()
}

// Count 关系总数
func (r *relationshipRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return count, nil
}

// 编译时检查接口实现
var _ knowledge.RelationshipRepository = (*relationshipRepository)(nil)
