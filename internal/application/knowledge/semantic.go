package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	domainKnowledge "github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/infrastructure/embedding"
	"github.com/memtier/backend/internal/infrastructure/log"
	"github.com/memtier/backend/internal/infrastructure/vector"
)

// SemanticIndex 模式的可选语义索引
// 依赖 Embedding API 和 Qdrant，两者任一缺失时整体禁用
type SemanticIndex struct {
	client *embedding.Client
	index  *vector.PatternIndex
	logger *slog.Logger

	// ensureOnce 首次写入时按探测到的向量维度创建集合
	ensureOnce sync.Once
	ensureErr  error
}

// NewSemanticIndex 创建语义索引；任一依赖缺失时返回 nil
func NewSemanticIndex(client *embedding.Client, index *vector.PatternIndex) *SemanticIndex {
	if client == nil || index == nil {
		return nil
	}
	return &SemanticIndex{
		client: client,
		index:  index,
		logger: log.NewModuleLogger("knowledge", "semantic"),
	}
}

// embedText 模式的向量化文本：标题 + 分类 + 上下文负载
func embedText(p *domainKnowledge.Pattern) string {
	text := p.Title
	if p.Category != "" {
		text += "\ncategory: " + p.Category
	}
	if len(p.Context) > 0 {
		if data, err := json.Marshal(p.Context); err == nil {
			text += "\n" + string(data)
		}
	}
	return text
}

// ensureCollection 按首个向量的维度创建集合
func (si *SemanticIndex) ensureCollection(ctx context.Context, dimension int) error {
	si.ensureOnce.Do(func() {
		si.ensureErr = si.index.EnsureCollection(ctx, uint64(dimension))
	})
	return si.ensureErr
}

// IndexPattern 向量化并写入模式
func (si *SemanticIndex) IndexPattern(ctx context.Context, p *domainKnowledge.Pattern) error {
	vectors, err := si.client.EmbedTexts([]string{embedText(p)})
	if err != nil {
		return fmt.Errorf("failed to embed pattern: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return fmt.Errorf("invalid embedding result")
	}

	if err := si.ensureCollection(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}

	return si.index.UpsertPattern(ctx, p.ID, vectors[0], map[string]interface{}{
		"pattern_id": p.ID,
		"category":   p.Category,
		"title":      p.Title,
	})
}

// Search 向量检索相似模式
func (si *SemanticIndex) Search(ctx context.Context, query string, limit int, category string) ([]*vector.PatternHit, error) {
	vectors, err := si.client.EmbedTexts([]string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("invalid embedding result")
	}

	return si.index.SearchSimilar(ctx, vectors[0], limit, category)
}

// Remove 从索引中删除模式
func (si *SemanticIndex) Remove(ctx context.Context, patternID string) error {
	return si.index.DeletePattern(ctx, patternID)
}
