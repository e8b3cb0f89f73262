package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memtier/backend/internal/domain/conversation"
)

// conversationRepository Tier 1 对话 SQLite 仓储实现
type conversationRepository struct {
	db *sql.DB
}

// NewConversationRepository 创建对话仓储实例
func NewConversationRepository(db *sql.DB) conversation.Repository {
	return &conversationRepository{db: db}
}

// SaveConversation 保存或更新对话
func (r *conversationRepository) SaveConversation(conv *conversation.Conversation) error {
	var endedAt sql.NullInt64
	if conv.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: conv.EndedAt.UnixMilli(), Valid: true}
	}

	active := 0
	if conv.Active {
		active = 1
	}

	// 使用 INSERT OR REPLACE 实现 upsert
	query := `
		INSERT OR REPLACE INTO conversations (id, started_at, ended_at, active)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.Exec(query, conv.ID, conv.StartedAt.UnixMilli(), endedAt, active)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

// SaveTurn 保存轮次
func (r *conversationRepository) SaveTurn(turn *conversation.Turn) error {
	entities, err := json.Marshal(turn.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	linked, err := json.Marshal(turn.LinkedPatternIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal linked pattern ids: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO conversation_turns
		(id, conversation_id, role, content, timestamp, entities, linked_pattern_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		turn.ID,
		turn.ConversationID,
		string(turn.Role),
		turn.Content,
		turn.Timestamp.UnixMilli(),
		string(entities),
		string(linked),
	)
	if err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	return nil
}

// FindConversation 按 ID 查找对话
func (r *conversationRepository) FindConversation(id string) (*conversation.Conversation, error) {
	query := `
		SELECT c.id, c.started_at, c.ended_at, c.active,
		       (SELECT COUNT(*) FROM conversation_turns t WHERE t.conversation_id = c.id)
		FROM conversations c
		WHERE c.id = ?`

	return r.scanConversation(r.db.QueryRow(query, id))
}

// FindActiveConversation 查找当前活跃对话
func (r *conversationRepository) FindActiveConversation() (*conversation.Conversation, error) {
	query := `
		SELECT c.id, c.started_at, c.ended_at, c.active,
		       (SELECT COUNT(*) FROM conversation_turns t WHERE t.conversation_id = c.id)
		FROM conversations c
		WHERE c.active = 1
		ORDER BY c.started_at DESC
		LIMIT 1`

	return r.scanConversation(r.db.QueryRow(query))
}

// scanConversation 扫描单行对话
func (r *conversationRepository) scanConversation(row *sql.Row) (*conversation.Conversation, error) {
	var conv conversation.Conversation
	var startedAt int64
	var endedAt sql.NullInt64
	var active int

	err := row.Scan(&conv.ID, &startedAt, &endedAt, &active, &conv.TurnCount)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	conv.StartedAt = time.UnixMilli(startedAt)
	if endedAt.Valid {
		t := time.UnixMilli(endedAt.Int64)
		conv.EndedAt = &t
	}
	conv.Active = active == 1

	return &conv, nil
}

// FindTurns 按对话 ID 查找轮次，按时间升序
func (r *conversationRepository) FindTurns(conversationID string) ([]*conversation.Turn, error) {
	query := `
		SELECT id, conversation_id, role, content, timestamp, entities, linked_pattern_ids
		FROM conversation_turns
		WHERE conversation_id = ?
		ORDER BY timestamp ASC`

	rows, err := r.db.Query(query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	return r.scanTurns(rows)
}

// RecentTurns 全局最近轮次，按时间降序
func (r *conversationRepository) RecentTurns(limit int) ([]*conversation.Turn, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, conversation_id, role, content, timestamp, entities, linked_pattern_ids
		FROM conversation_turns
		ORDER BY timestamp DESC
		LIMIT ?`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	return r.scanTurns(rows)
}

// scanTurns 扫描轮次结果集
func (r *conversationRepository) scanTurns(rows *sql.Rows) ([]*conversation.Turn, error) {
	var turns []*conversation.Turn
	for rows.Next() {
		var turn conversation.Turn
		var role string
		var timestamp int64
		var entities, linked sql.NullString

		if err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&role,
			&turn.Content,
			&timestamp,
			&entities,
			&linked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn.Role = conversation.Role(role)
		turn.Timestamp = time.UnixMilli(timestamp)
		if entities.Valid && entities.String != "" {
			_ = json.Unmarshal([]byte(entities.String), &turn.Entities)
		}
		if linked.Valid && linked.String != "" {
			_ = json.Unmarshal([]byte(linked.String), &turn.LinkedPatternIDs)
		}

		turns = append(turns, &turn)
	}

	return turns, rows.Err()
}

// CountConversations 对话总数
func (r *conversationRepository) CountConversations() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return count, nil
}

// OldestConversationID 按开始时间最早的对话 ID
func (r *conversationRepository) OldestConversationID() (string, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM conversations ORDER BY started_at ASC LIMIT 1`).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to query oldest conversation: %w", err)
	}
	return id, nil
}

// DeleteConversation 整体删除对话及其全部轮次
// 整对话淘汰保证持有对话 ID 的消费者不会看到半截历史
func (r *conversationRepository) DeleteConversation(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM conversation_turns WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return tx.Commit()
}

// AppendLinkedPattern 向轮次追加模式 ID
func (r *conversationRepository) AppendLinkedPattern(turnID, patternID string) error {
	var linked sql.NullString
	err := r.db.QueryRow(`SELECT linked_pattern_ids FROM conversation_turns WHERE id = ?`, turnID).Scan(&linked)
	if err != nil {
		if err == sql.ErrNoRows {
			return conversation.ErrTurnNotFound
		}
		return fmt.Errorf("failed to query turn: %w", err)
	}

	var ids []string
	if linked.Valid && linked.String != "" {
		_ = json.Unmarshal([]byte(linked.String), &ids)
	}

	// 幂等：已存在则跳过
	for _, existing := range ids {
		if existing == patternID {
			return nil
		}
	}
	ids = append(ids, patternID)

	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal linked pattern ids: %w", err)
	}

	if _, err := r.db.Exec(`UPDATE conversation_turns SET linked_pattern_ids = ? WHERE id = ?`, string(data), turnID); err != nil {
		return fmt.Errorf("failed to update turn: %w", err)
	}

	return nil
}

// LastWriteTime 最近一次写入的时间戳（毫秒）
func (r *conversationRepository) LastWriteTime() (int64, error) {
	var ts sql.NullInt64
	if err := r.db.QueryRow(`SELECT MAX(timestamp) FROM conversation_turns`).Scan(&ts); err != nil {
		return 0, fmt.Errorf("failed to query last write time: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// 编译时检查接口实现
var _ conversation.Repository = (*conversationRepository)(nil)
