// Package workingmem 实现 Tier 1 短期对话缓存
package workingmem

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// Service Tier 1 工作记忆服务
// 容量按对话计数，超出时整段淘汰最旧对话（FIFO）
type Service struct {
	repo   conversation.Repository
	config *config.WorkingMemConfig
	logger *slog.Logger

	// evictMu 串行化追加与淘汰，保证容量判断不竞争
	evictMu sync.Mutex

	// stateVersion 每次写入递增，供组合结果缓存做失效判断
	stateVersion int64
	versionMu    sync.Mutex
}

// NewService 创建工作记忆服务
func NewService(repo conversation.Repository, cfg *config.WorkingMemConfig) *Service {
	return &Service{
		repo:   repo,
		config: cfg,
		logger: log.NewModuleLogger("workingmem", "service"),
	}
}

// Append 追加一轮对话，返回所属对话 ID
// ConversationID 为空时复用当前活跃对话，没有则新建；
// 超出容量时同步淘汰最旧对话，追加本身永不因超容量失败
func (s *Service) Append(turn *conversation.Turn) (string, error) {
	if turn == nil || turn.Content == "" {
		return "", conversation.ErrEmptyContent
	}
	if !turn.Role.IsValid() {
		return "", conversation.ErrInvalidRole
	}

	s.evictMu.Lock()
	defer s.evictMu.Unlock()

	conv, err := s.resolveConversation(turn.ConversationID)
	if err != nil {
		return "", err
	}

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	turn.ConversationID = conv.ID

	// 调用方未提供实体时自行提取
	if len(turn.Entities) == 0 {
		turn.Entities = ExtractEntities(turn.Content)
	}

	if err := s.repo.SaveTurn(turn); err != nil {
		return "", fmt.Errorf("failed to save turn: %w", err)
	}

	conv.TurnCount++
	if err := s.repo.SaveConversation(conv); err != nil {
		return "", fmt.Errorf("failed to update conversation: %w", err)
	}

	if err := s.enforceCapacity(conv.ID); err != nil {
		// 淘汰失败只告警，不影响已完成的追加
		s.logger.Warn("Failed to enforce conversation capacity", "error", err)
	}

	s.bumpVersion()

	return conv.ID, nil
}

// resolveConversation 定位或创建目标对话
func (s *Service) resolveConversation(conversationID string) (*conversation.Conversation, error) {
	if conversationID != "" {
		conv, err := s.repo.FindConversation(conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to find conversation: %w", err)
		}
		if conv != nil {
			return conv, nil
		}
		// 指定了未知 ID：按新对话处理，沿用调用方的 ID
		conv = &conversation.Conversation{
			ID:        conversationID,
			StartedAt: time.Now(),
			Active:    true,
		}
		if err := s.repo.SaveConversation(conv); err != nil {
			return nil, fmt.Errorf("failed to create conversation: %w", err)
		}
		return conv, nil
	}

	conv, err := s.repo.FindActiveConversation()
	if err != nil {
		return nil, fmt.Errorf("failed to find active conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = &conversation.Conversation{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Active:    true,
	}
	if err := s.repo.SaveConversation(conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// enforceCapacity 超出容量时整段淘汰最旧对话
// current 为本次写入的对话，永不淘汰自己
func (s *Service) enforceCapacity(currentID string) error {
	max := s.config.MaxConversations
	if max <= 0 {
		return nil
	}

	for {
		count, err := s.repo.CountConversations()
		if err != nil {
			return err
		}
		if count <= max {
			return nil
		}

		oldestID, err := s.repo.OldestConversationID()
		if err != nil {
			return err
		}
		if oldestID == "" || oldestID == currentID {
			return nil
		}

		if err := s.repo.DeleteConversation(oldestID); err != nil {
			return err
		}

		s.logger.Info("Evicted oldest conversation over capacity",
			"conversation_id", oldestID,
			"capacity", max,
		)
	}
}

// Recent 全局最近轮次，最新在前
func (s *Service) Recent(limit int) ([]*conversation.Turn, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.RecentTurns(limit)
}

// Search 关键词搜索轮次
// 空库返回空切片而不是错误
func (s *Service) Search(query string, filter conversation.SearchFilter) ([]*conversation.Turn, error) {
	var candidates []*conversation.Turn
	var err error

	if filter.ConversationID != "" {
		candidates, err = s.repo.FindTurns(filter.ConversationID)
	} else {
		// 全局搜索：从最近的轮次中筛选
		candidates, err = s.repo.RecentTurns(1000)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	results := make([]*conversation.Turn, 0)
	for _, turn := range candidates {
		if filter.Role != "" && turn.Role != filter.Role {
			continue
		}
		if filter.Entity != "" && !hasEntity(turn, filter.Entity) {
			continue
		}
		if !turn.MatchesQuery(query) {
			continue
		}
		results = append(results, turn)
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// hasEntity 轮次是否引用了指定实体（大小写不敏感）
func hasEntity(turn *conversation.Turn, entity string) bool {
	for _, e := range turn.Entities {
		if strings.EqualFold(e, entity) {
			return true
		}
	}
	return false
}

// GetContext 返回对话上下文：最近 K 轮加相关实体并集
// conversationID 为空时使用当前活跃对话
func (s *Service) GetContext(conversationID string) (*conversation.ConversationContext, error) {
	var conv *conversation.Conversation
	var err error

	if conversationID == "" {
		conv, err = s.repo.FindActiveConversation()
	} else {
		conv, err = s.repo.FindConversation(conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		return nil, conversation.ErrConversationNotFound
	}

	turns, err := s.repo.FindTurns(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}

	// 只保留最近 K 轮，完整历史仍留在存储中
	k := s.config.ContextTurns
	if k <= 0 {
		k = 10
	}
	if len(turns) > k {
		turns = turns[len(turns)-k:]
	}

	seen := make(map[string]bool)
	entities := make([]string, 0)
	for _, turn := range turns {
		for _, e := range turn.Entities {
			if !seen[e] {
				seen[e] = true
				entities = append(entities, e)
			}
		}
	}

	return &conversation.ConversationContext{
		Current:         conv,
		PriorTurns:      turns,
		RelatedEntities: entities,
	}, nil
}

// LinkPattern 事后将模式 ID 回填到轮次
func (s *Service) LinkPattern(turnID, patternID string) error {
	if err := s.repo.AppendLinkedPattern(turnID, patternID); err != nil {
		return err
	}
	s.bumpVersion()
	return nil
}

// CountConversations 对话总数（质量评估用）
func (s *Service) CountConversations() (int, error) {
	return s.repo.CountConversations()
}

// LastWriteTime 最近写入时间戳（毫秒），质量评估用
func (s *Service) LastWriteTime() (int64, error) {
	return s.repo.LastWriteTime()
}

// StateVersion 当前状态版本号，每次写入递增
func (s *Service) StateVersion() int64 {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	return s.stateVersion
}

func (s *Service) bumpVersion() {
	s.versionMu.Lock()
	s.stateVersion++
	s.versionMu.Unlock()
}
