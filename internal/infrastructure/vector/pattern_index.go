// Package vector 提供基于 Qdrant 的模式向量索引
package vector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
	"github.com/qdrant/go-client/qdrant"
)

// patternCollection 模式向量集合名
const patternCollection = "memtier_patterns"

// PatternIndex 模式向量索引
// 依赖外部 Qdrant 实例；未配置时为 nil，语义检索降级为关键词匹配
type PatternIndex struct {
	client *qdrant.Client
	logger *slog.Logger
}

// PatternHit 向量检索命中
type PatternHit struct {
	PatternID string
	Score     float32
}

// NewPatternIndex 连接 Qdrant 并创建索引
func NewPatternIndex(host string, port int) (*PatternIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	return &PatternIndex{
		client: client,
		logger: log.NewModuleLogger("vector", "pattern_index"),
	}, nil
}

// ProvidePatternIndex 从配置构建索引
// 未配置 Embedding 或 Qdrant 地址时返回 nil
func ProvidePatternIndex(cfg *config.EmbeddingConfig) *PatternIndex {
	if cfg.BaseURL == "" || cfg.QdrantHost == "" {
		return nil
	}

	index, err := NewPatternIndex(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.NewModuleLogger("vector", "pattern_index").Warn(
			"Qdrant unavailable, semantic search disabled",
			"host", cfg.QdrantHost,
			"port", cfg.QdrantPort,
			"error", err,
		)
		return nil
	}
	return index
}

// EnsureCollection 确保模式集合存在
func (p *PatternIndex) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	existing, err := p.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range existing {
		if name == patternCollection {
			return nil
		}
	}

	err = p.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: patternCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", patternCollection, err)
	}

	p.logger.Info("Created pattern collection", "collection", patternCollection, "vector_size", vectorSize)
	return nil
}

// UpsertPattern 写入或更新模式向量
func (p *PatternIndex) UpsertPattern(ctx context.Context, patternID string, vector []float32, payload map[string]interface{}) error {
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(patternID),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(payload),
	}

	_, err := p.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: patternCollection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("failed to upsert pattern %s: %w", patternID, err)
	}
	return nil
}

// SearchSimilar 按向量检索相似模式；category 非空时按分类过滤
func (p *PatternIndex) SearchSimilar(ctx context.Context, vector []float32, limit int, category string) ([]*PatternHit, error) {
	if limit <= 0 {
		limit = 10
	}

	var filter *qdrant.Filter
	if category != "" {
		filter = &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("category", category),
			},
		}
	}

	limitU := uint64(limit)
	resp, err := p.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: patternCollection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitU,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}

	hits := make([]*PatternHit, 0, len(resp))
	for _, point := range resp {
		hit := &PatternHit{Score: point.Score}
		if payload := point.Payload; payload != nil {
			if val, ok := payload["pattern_id"]; ok {
				hit.PatternID = val.GetStringValue()
			}
		}
		if hit.PatternID == "" {
			if id := point.Id.GetUuid(); id != "" {
				hit.PatternID = id
			}
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// DeletePattern 删除模式向量
func (p *PatternIndex) DeletePattern(ctx context.Context, patternID string) error {
	_, err := p.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: patternCollection,
		Points:         qdrant.NewPointsSelector(qdrant.NewID(patternID)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete pattern %s: %w", patternID, err)
	}
	return nil
}

// Close 关闭连接
func (p *PatternIndex) Close() {
	if p.client != nil {
		p.client.Close()
	}
}
