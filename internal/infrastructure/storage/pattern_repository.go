package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/memtier/backend/internal/domain/knowledge"
)

// patternRepository Tier 2 模式 SQLite 仓储实现
type patternRepository struct {
	db *sql.DB
}

// NewPatternRepository 创建模式仓储实例
func NewPatternRepository(db *sql.DB) knowledge.PatternRepository {
	return &patternRepository{db: db}
}

// Save 保存或更新模式
func (r *patternRepository) Save(p *knowledge.Pattern) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	context, err := json.Marshal(p.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern context: %w", err)
	}

	applied, err := json.Marshal(p.AppliedInConversationIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation refs: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO patterns
		(id, title, category, confidence, context, created_at, last_used_at, usage_count, applied_in_conversation_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		p.ID,
		p.Title,
		p.Category,
		p.Confidence,
		string(context),
		p.CreatedAt.UnixMilli(),
		p.LastUsedAt.UnixMilli(),
		p.UsageCount,
		string(applied),
	)
	if err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	return nil
}

// FindByID 按 ID 查找模式
func (r *patternRepository) FindByID(id string) (*knowledge.Pattern, error) {
	query := patternSelectSQL + ` WHERE id = ?`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern: %w", err)
	}
	defer rows.Close()

	patterns, err := r.scanPatterns(rows)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	return patterns[0], nil
}

const patternSelectSQL = `
	SELECT id, title, category, confidence, context, created_at, last_used_at, usage_count, applied_in_conversation_ids
	FROM patterns`

// FindAll 返回全部模式
func (r *patternRepository) FindAll() ([]*knowledge.Pattern, error) {
	rows, err := r.db.Query(patternSelectSQL + ` ORDER BY last_used_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	return r.scanPatterns(rows)
}

// FindByCategory 按分类返回模式
func (r *patternRepository) FindByCategory(category string) ([]*knowledge.Pattern, error) {
	rows, err := r.db.Query(patternSelectSQL+` WHERE category = ? ORDER BY last_used_at DESC`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns by category: %w", err)
	}
	defer rows.Close()

	return r.scanPatterns(rows)
}

// scanPatterns 扫描模式结果集
func (r *patternRepository) scanPatterns(rows *sql.Rows) ([]*knowledge.Pattern, error) {
	var patterns []*knowledge.Pattern
	for rows.Next() {
		var p knowledge.Pattern
		var category, context, applied sql.NullString
		var createdAt, lastUsedAt int64

		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&category,
			&p.Confidence,
			&context,
			&createdAt,
			&lastUsedAt,
			&p.UsageCount,
			&applied,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}

		p.Category = category.String
		p.CreatedAt = time.UnixMilli(createdAt)
		p.LastUsedAt = time.UnixMilli(lastUsedAt)
		if context.Valid && context.String != "" {
			_ = json.Unmarshal([]byte(context.String), &p.Context)
		}
		if applied.Valid && applied.String != "" {
			_ = json.Unmarshal([]byte(applied.String), &p.AppliedInConversationIDs)
		}

		patterns = append(patterns, &p)
	}

	return patterns, rows.Err()
}

// UpdateConfidence 单条原子更新置信度
// 清扫路径逐条 UPDATE，并发读取只会看到清扫前或清扫后的整行
func (r *patternRepository) UpdateConfidence(id string, confidence float64) error {
	result, err := r.db.Exec(`UPDATE patterns SET confidence = ? WHERE id = ?`, confidence, id)
	if err != nil {
		return fmt.Errorf("failed to update confidence: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return knowledge.ErrPatternNotFound
	}
	return nil
}

// ApplyDecay 原子更新置信度并前移衰减锚点
// last_used_at 按整区间前移，保证重复清扫不会对同一段时间叠加衰减
func (r *patternRepository) ApplyDecay(id string, confidence float64, anchor time.Time) error {
	result, err := r.db.Exec(
		`UPDATE patterns SET confidence = ?, last_used_at = ? WHERE id = ?`,
		confidence, anchor.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to apply decay: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return knowledge.ErrPatternNotFound
	}
	return nil
}

// Boost 提升置信度并刷新使用记录
func (r *patternRepository) Boost(id string, confidence float64, lastUsedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE patterns SET confidence = ?, last_used_at = ?, usage_count = usage_count + 1 WHERE id = ?`,
		confidence, lastUsedAt.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to boost pattern: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return knowledge.ErrPatternNotFound
	}
	return nil
}

// Delete 硬删除模式
func (r *patternRepository) Delete(id string) error {
	if _, err := r.db.Exec(`DELETE FROM patterns WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	return nil
}

// Count 模式总数
func (r *patternRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM patterns`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return count, nil
}

// AppendConversationRef 追加应用到的对话 ID
func (r *patternRepository) AppendConversationRef(patternID, conversationID string) error {
	var applied sql.NullString
	err := r.db.QueryRow(`SELECT applied_in_conversation_ids FROM patterns WHERE id = ?`, patternID).Scan(&applied)
	if err != nil {
		if err == sql.ErrNoRows {
			return knowledge.ErrPatternNotFound
		}
		return fmt.Errorf("failed to query pattern: %w", err)
	}

	var ids []string
	if applied.Valid && applied.String != "" {
		_ = json.Unmarshal([]byte(applied.String), &ids)
	}

	for _, existing := range ids {
		if existing == conversationID {
			return nil
		}
	}
	ids = append(ids, conversationID)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation refs: %w", err)
	}

	if _, err := r.db.Exec(`UPDATE patterns SET applied_in_conversation_ids = ? WHERE id = ?`, string(data), patternID); err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}

	return nil
}

// LastWriteTime 最近一次写入的时间戳（毫秒）
func (r *patternRepository) LastWriteTime() (int64, error) {
	var ts sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(last_used_at) FROM patterns`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("failed to query last write time: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// 编译时检查接口实现
var _ knowledge.PatternRepository = (*patternRepository)(nil)
