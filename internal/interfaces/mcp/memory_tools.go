package mcp

import (
	"context"

	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RecordTurnInput 记录轮次工具输入
type RecordTurnInput struct {
	Role           string   `json:"role" jsonschema:"发言角色：user 或 assistant"`
	Content        string   `json:"content" jsonschema:"轮次内容"`
	ConversationID string   `json:"conversation_id,omitempty" jsonschema:"对话 ID，留空追加到活跃对话"`
	Entities       []string `json:"entities,omitempty" jsonschema:"引用的文件或符号，留空自动提取"`
}

// RecordTurnOutput 记录轮次工具输出
type RecordTurnOutput struct {
	TurnID         string `json:"turn_id" jsonschema:"轮次 ID"`
	ConversationID string `json:"conversation_id" jsonschema:"实际写入的对话 ID"`
}

// recordTurnTool 向 Tier 1 追加一轮对话
func (s *MCPServer) recordTurnTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input RecordTurnInput,
) (*mcp.CallToolResult, RecordTurnOutput, error) {
	turn := &conversation.Turn{
		ConversationID: input.ConversationID,
		Role:           conversation.Role(input.Role),
		Content:        input.Content,
		Entities:       input.Entities,
	}

	turnID, err := s.workingmem.Append(turn)
	if err != nil {
		return nil, RecordTurnOutput{}, err
	}

	return nil, RecordTurnOutput{
		TurnID:         turnID,
		ConversationID: turn.ConversationID,
	}, nil
}

// SearchTurnsInput 搜索轮次工具输入
type SearchTurnsInput struct {
	Query          string `json:"query,omitempty" jsonschema:"关键词"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"限定对话"`
	Role           string `json:"role,omitempty" jsonschema:"限定角色"`
	Entity         string `json:"entity,omitempty" jsonschema:"限定实体"`
	Limit          int    `json:"limit,omitempty" jsonschema:"返回条数，默认 20"`
}

// SearchTurnsOutput 搜索轮次工具输出
type SearchTurnsOutput struct {
	Turns []*conversation.Turn `json:"turns" jsonschema:"命中的轮次，按时间倒序"`
	Total int                  `json:"total" jsonschema:"命中总数"`
}

// searchTurnsTool 搜索 Tier 1 轮次
func (s *MCPServer) searchTurnsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SearchTurnsInput,
) (*mcp.CallToolResult, SearchTurnsOutput, error) {
	turns, err := s.workingmem.Search(input.Query, conversation.SearchFilter{
		ConversationID: input.ConversationID,
		Role:           conversation.Role(input.Role),
		Entity:         input.Entity,
		Limit:          input.Limit,
	})
	if err != nil {
		return nil, SearchTurnsOutput{}, err
	}

	return nil, SearchTurnsOutput{Turns: turns, Total: len(turns)}, nil
}
