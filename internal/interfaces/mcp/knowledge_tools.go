package mcp

import (
	"context"

	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SavePatternInput 保存模式工具输入
type SavePatternInput struct {
	Title      string                 `json:"title" jsonschema:"模式标题"`
	Category   string                 `json:"category,omitempty" jsonschema:"模式类别"`
	Confidence float64                `json:"confidence" jsonschema:"初始置信度 [0,1]"`
	Context    map[string]interface{} `json:"context,omitempty" jsonschema:"模式实质内容"`
}

// SavePatternOutput 保存模式工具输出
type SavePatternOutput struct {
	Pattern *knowledge.Pattern `json:"pattern" jsonschema:"保存后的模式"`
}

// savePatternTool 向 Tier 2 保存模式
func (s *MCPServer) savePatternTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SavePatternInput,
) (*mcp.CallToolResult, SavePatternOutput, error) {
	p := &knowledge.Pattern{
		Title:      input.Title,
		Category:   input.Category,
		Confidence: input.Confidence,
		Context:    input.Context,
	}
	if err := s.knowledge.StorePattern(p); err != nil {
		return nil, SavePatternOutput{}, err
	}

	return nil, SavePatternOutput{Pattern: p}, nil
}

// SearchPatternsInput 搜索模式工具输入
type SearchPatternsInput struct {
	Query         string  `json:"query,omitempty" jsonschema:"关键词"`
	Category      string  `json:"category,omitempty" jsonschema:"限定类别"`
	MinConfidence float64 `json:"min_confidence,omitempty" jsonschema:"置信度下限"`
	Limit         int     `json:"limit,omitempty" jsonschema:"返回条数，默认 10"`
}

// SearchPatternsOutput 搜索模式工具输出
type SearchPatternsOutput struct {
	Patterns []*knowledge.Pattern `json:"patterns" jsonschema:"按排序分降序的模式"`
	Total    int                  `json:"total" jsonschema:"命中总数"`
}

// searchPatternsTool 搜索 Tier 2 模式
func (s *MCPServer) searchPatternsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchPatternsInput,
) (*mcp.CallToolResult, SearchPatternsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}

	patterns, err := s.knowledge.SearchPatterns(input.Query, knowledge.SearchFilter{
		Category:      input.Category,
		MinConfidence: input.MinConfidence,
	}, limit)
	if err != nil {
		return nil, SearchPatternsOutput{}, err
	}

	return nil, SearchPatternsOutput{Patterns: patterns, Total: len(patterns)}, nil
}

// BoostPatternInput 提升模式置信度工具输入
type BoostPatternInput struct {
	PatternID      string `json:"pattern_id" jsonschema:"模式 ID"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"应用该模式的对话 ID"`
}

// BoostPatternOutput 提升模式置信度工具输出
type BoostPatternOutput struct {
	Pattern *knowledge.Pattern `json:"pattern" jsonschema:"提升后的模式"`
}

// boostPatternTool 模式复用后提升置信度
func (s *MCPServer) boostPatternTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input BoostPatternInput,
) (*mcp.CallToolResult, BoostPatternOutput, error) {
	// amount 为 0 时服务端使用配置默认提升量
	p, err := s.knowledge.Boost(input.PatternID, 0)
	if err != nil {
		return nil, BoostPatternOutput{}, err
	}

	if input.ConversationID != "" {
		if err := s.knowledge.RecordApplication(p.ID, input.ConversationID); err != nil {
			return nil, BoostPatternOutput{}, err
		}
	}

	return nil, BoostPatternOutput{Pattern: p}, nil
}

// RecordRelationshipInput 记录关系工具输入
type RecordRelationshipInput struct {
	Subject          string  `json:"subject" jsonschema:"主体实体"`
	Object           string  `json:"object" jsonschema:"客体实体"`
	RelationshipType string  `json:"relationship_type,omitempty" jsonschema:"关系类型，默认 related_to"`
	Strength         float64 `json:"strength" jsonschema:"观测强度 [0,1]"`
}

// RecordRelationshipOutput 记录关系工具输出
type RecordRelationshipOutput struct {
	Relationship *knowledge.Relationship `json:"relationship" jsonschema:"平滑后的关系边"`
}

// recordRelationshipTool 记录一次实体关系观察
func (s *MCPServer) recordRelationshipTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RecordRelationshipInput,
) (*mcp.CallToolResult, RecordRelationshipOutput, error) {
	rel, err := s.knowledge.RecordRelationship(input.Subject, input.Object, input.RelationshipType, input.Strength)
	if err != nil {
		return nil, RecordRelationshipOutput{}, err
	}

	return nil, RecordRelationshipOutput{Relationship: rel}, nil
}

// RunDecayInput 衰减清扫工具输入（空输入）
type RunDecayInput struct{}

// RunDecayOutput 衰减清扫工具输出
type RunDecayOutput struct {
	DecayedCount int `json:"decayed_count" jsonschema:"本次衰减的模式数"`
	PrunedCount  int `json:"pruned_count" jsonschema:"本次剪除的模式数"`
}

// runDecayTool 立即执行一次置信度衰减清扫
func (s *MCPServer) runDecayTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RunDecayInput,
) (*mcp.CallToolResult, RunDecayOutput, error) {
	result, err := s.knowledge.ApplyDecay()
	if err != nil {
		return nil, RunDecayOutput{}, err
	}

	return nil, RunDecayOutput{
		DecayedCount: result.DecayedCount,
		PrunedCount:  result.PrunedCount,
	}, nil
}
