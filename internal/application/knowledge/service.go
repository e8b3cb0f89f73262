// Package knowledge 实现 Tier 2 长期模式图谱
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	domainKnowledge "github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// Service Tier 2 知识图谱服务
type Service struct {
	patterns      domainKnowledge.PatternRepository
	relationships domainKnowledge.RelationshipRepository
	config        *config.KnowledgeConfig
	// semantic 可选语义索引，未配置时为 nil，搜索退化为词法匹配
	semantic *SemanticIndex
	logger   *slog.Logger

	// sweepMu 串行化衰减清扫，读者只会看到清扫前或清扫后的行
	sweepMu sync.Mutex

	// stateVersion 每次写入递增，供组合结果缓存做失效判断
	stateVersion int64
	versionMu    sync.Mutex
}

// NewService 创建知识图谱服务
func NewService(
	patterns domainKnowledge.PatternRepository,
	relationships domainKnowledge.RelationshipRepository,
	cfg *config.KnowledgeConfig,
	semantic *SemanticIndex,
) *Service {
	return &Service{
		patterns:      patterns,
		relationships: relationships,
		config:        cfg,
		semantic:      semantic,
		logger:        log.NewModuleLogger("knowledge", "service"),
	}
}

// decayPolicy 从配置构建衰减策略
func (s *Service) decayPolicy() domainKnowledge.DecayPolicy {
	policy := domainKnowledge.DefaultDecayPolicy()
	if s.config.DecayRate > 0 {
		policy.Rate = s.config.DecayRate
	}
	if s.config.DecayIntervalDays > 0 {
		policy.Interval = time.Duration(s.config.DecayIntervalDays) * 24 * time.Hour
	}
	if s.config.ConfidenceFloor > 0 {
		policy.Floor = s.config.ConfidenceFloor
	}
	return policy
}

// StorePattern 保存模式
// 置信度超出 [0,1] 或标题为空时拒绝
func (s *Service) StorePattern(p *domainKnowledge.Pattern) error {
	if p == nil || strings.TrimSpace(p.Title) == "" {
		return domainKnowledge.ErrEmptyTitle
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return domainKnowledge.ErrInvalidConfidence
	}

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.LastUsedAt.IsZero() {
		p.LastUsedAt = now
	}

	if err := s.patterns.Save(p); err != nil {
		return fmt.Errorf("failed to save pattern: %w", err)
	}

	// 语义索引尽力而为，失败不影响存储
	if s.semantic != nil {
		if err := s.semantic.IndexPattern(context.Background(), p); err != nil {
			s.logger.Warn("Failed to index pattern for semantic search",
				"pattern_id", p.ID,
				"error", err,
			)
		}
	}

	s.bumpVersion()
	return nil
}

// GetPattern 按 ID 获取模式
func (s *Service) GetPattern(id string) (*domainKnowledge.Pattern, error) {
	p, err := s.patterns.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find pattern: %w", err)
	}
	if p == nil {
		return nil, domainKnowledge.ErrPatternNotFound
	}
	return p, nil
}

// SearchPatterns 搜索模式
// 排序键 = matchScore × (0.5+0.5×confidence) × (1+ln(1+usage)/10)，
// 置信度单调，同分时 last_used_at 更近者优先
func (s *Service) SearchPatterns(query string, filter domainKnowledge.SearchFilter, limit int) ([]*domainKnowledge.Pattern, error) {
	if limit <= 0 {
		limit = 10
	}

	var candidates []*domainKnowledge.Pattern
	var err error
	if filter.Category != "" {
		candidates, err = s.patterns.FindByCategory(filter.Category)
	} else {
		candidates, err = s.patterns.FindAll()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	// 语义命中分值（可选），与词法分取较大者
	semanticScores := s.semanticScores(query, filter.Category, limit)

	type scored struct {
		pattern *domainKnowledge.Pattern
		score   float64
	}

	results := make([]scored, 0, len(candidates))
	for _, p := range candidates {
		if p.Confidence < filter.MinConfidence {
			continue
		}

		match := lexicalMatchScore(query, p)
		if sem, ok := semanticScores[p.ID]; ok && sem > match {
			match = sem
		}
		if match <= 0 {
			continue
		}

		results = append(results, scored{
			pattern: p,
			score:   domainKnowledge.RankScore(match, p.Confidence, p.UsageCount),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].pattern.LastUsedAt.After(results[j].pattern.LastUsedAt)
	})

	if len(results) > limit {
		results = results[:limit]
	}

	patterns := make([]*domainKnowledge.Pattern, len(results))
	for i, r := range results {
		patterns[i] = r.pattern
	}
	return patterns, nil
}

// semanticScores 查询语义索引，返回 pattern_id → 相似度
func (s *Service) semanticScores(query, category string, limit int) map[string]float64 {
	if s.semantic == nil || query == "" {
		return nil
	}

	hits, err := s.semantic.Search(context.Background(), query, limit, category)
	if err != nil {
		s.logger.Warn("Semantic search failed, falling back to lexical", "error", err)
		return nil
	}

	scores := make(map[string]float64, len(hits))
	for _, hit := range hits {
		score := float64(hit.Score)
		if score > 1 {
			score = 1
		}
		if score < 0 {
			score = 0
		}
		scores[hit.PatternID] = score
	}
	return scores
}

// lexicalMatchScore 词法匹配分：命中关键词占比
// 空查询视为全匹配
func lexicalMatchScore(query string, p *domainKnowledge.Pattern) float64 {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return 1
	}

	haystack := strings.ToLower(p.Title + " " + p.Category)
	if len(p.Context) > 0 {
		if data, err := json.Marshal(p.Context); err == nil {
			haystack += " " + strings.ToLower(string(data))
		}
	}

	matched := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords))
}

// Boost 模式被复用时提升置信度
// amount <= 0 时使用配置默认值；置信度封顶 1.0
func (s *Service) Boost(patternID string, amount float64) (*domainKnowledge.Pattern, error) {
	if amount <= 0 {
		amount = s.config.BoostAmount
	}

	p, err := s.GetPattern(patternID)
	if err != nil {
		return nil, err
	}

	confidence := p.Confidence + amount
	if confidence > 1 {
		confidence = 1
	}

	now := time.Now()
	if err := s.patterns.Boost(patternID, confidence, now); err != nil {
		return nil, fmt.Errorf("failed to boost pattern: %w", err)
	}

	p.Confidence = confidence
	p.LastUsedAt = now
	p.UsageCount++

	s.bumpVersion()
	return p, nil
}

// RecordApplication 记录模式应用到某个对话（非拥有引用）
func (s *Service) RecordApplication(patternID, conversationID string) error {
	if err := s.patterns.AppendConversationRef(patternID, conversationID); err != nil {
		return err
	}
	s.bumpVersion()
	return nil
}

// RecordRelationship 记录一次关系观察
// 幂等累加：已有边按 EMA 向观测值收敛，防止重复观察导致强度无界增长
func (s *Service) RecordRelationship(subject, object, relationshipType string, observedStrength float64) (*domainKnowledge.Relationship, error) {
	if strings.TrimSpace(subject) == "" || strings.TrimSpace(object) == "" {
		return nil, domainKnowledge.ErrEmptyEntity
	}
	if observedStrength < 0 || observedStrength > 1 {
		return nil, domainKnowledge.ErrInvalidStrength
	}
	if relationshipType == "" {
		relationshipType = "related_to"
	}

	existing, err := s.relationships.Find(subject, object, relationshipType)
	if err != nil {
		return nil, fmt.Errorf("failed to find relationship: %w", err)
	}

	now := time.Now()
	if existing == nil {
		rel := &domainKnowledge.Relationship{
			ID:               uuid.New().String(),
			Subject:          subject,
			Object:           object,
			RelationshipType: relationshipType,
			Strength:         observedStrength,
			ObservationCount: 1,
			LastObservedAt:   now,
		}
		if err := s.relationships.Save(rel); err != nil {
			return nil, fmt.Errorf("failed to save relationship: %w", err)
		}
		s.bumpVersion()
		return rel, nil
	}

	existing.Strength = domainKnowledge.UpdatedStrength(existing.Strength, observedStrength)
	existing.ObservationCount++
	existing.LastObservedAt = now

	if err := s.relationships.Save(existing); err != nil {
		return nil, fmt.Errorf("failed to update relationship: %w", err)
	}

	s.bumpVersion()
	return existing, nil
}

// GetRelationships 查询实体参与的关系
func (s *Service) GetRelationships(entity string, types []string, minStrength float64) ([]*domainKnowledge.Relationship, error) {
	if strings.TrimSpace(entity) == "" {
		return nil, domainKnowledge.ErrEmptyEntity
	}
	return s.relationships.FindByEntity(entity, types, minStrength)
}

// ApplyDecay 执行一次衰减清扫
// confidence ×= (1−rate)^完整区间数；低于下限的模式硬删除
// 同一维护周期内衰减先于提升执行
func (s *Service) ApplyDecay() (*domainKnowledge.SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	patterns, err := s.patterns.FindAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	policy := s.decayPolicy()
	now := time.Now()
	result := &domainKnowledge.SweepResult{}

	for _, p := range patterns {
		intervals := policy.Intervals(p.LastUsedAt, now)
		if intervals == 0 {
			continue
		}

		decayed := policy.DecayedConfidence(p.Confidence, p.LastUsedAt, now)

		if decayed < policy.Floor {
			if err := s.patterns.Delete(p.ID); err != nil {
				s.logger.Warn("Failed to prune pattern", "pattern_id", p.ID, "error", err)
				continue
			}
			if s.semantic != nil {
				if err := s.semantic.Remove(context.Background(), p.ID); err != nil {
					s.logger.Debug("Failed to remove pattern from semantic index",
						"pattern_id", p.ID, "error", err)
				}
			}
			result.PrunedCount++
			continue
		}

		// 锚点按整区间前移，重复清扫不会对同一段时间叠加衰减
		anchor := p.LastUsedAt.Add(time.Duration(intervals) * policy.Interval)
		if err := s.patterns.ApplyDecay(p.ID, decayed, anchor); err != nil {
			s.logger.Warn("Failed to decay pattern", "pattern_id", p.ID, "error", err)
			continue
		}
		result.DecayedCount++
	}

	if result.DecayedCount > 0 || result.PrunedCount > 0 {
		s.logger.Info("Decay sweep completed",
			"decayed", result.DecayedCount,
			"pruned", result.PrunedCount,
		)
		s.bumpVersion()
	}

	return result, nil
}

// CountPatterns 模式总数（质量评估用）
func (s *Service) CountPatterns() (int, error) {
	return s.patterns.Count()
}

// CountRelationships 关系总数
func (s *Service) CountRelationships() (int, error) {
	return s.relationships.Count()
}

// LastWriteTime 最近写入时间戳（毫秒），质量评估用
func (s *Service) LastWriteTime() (int64, error) {
	return s.patterns.LastWriteTime()
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
