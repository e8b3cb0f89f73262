package mcp

import (
	"context"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// BuildContextInput 构建上下文工具输入
type BuildContextInput struct {
	UserRequest      string   `json:"user_request" jsonschema:"当前用户请求"`
	CurrentFiles     []string `json:"current_files,omitempty" jsonschema:"正在编辑的文件"`
	TotalTokenBudget int      `json:"total_token_budget,omitempty" jsonschema:"token 预算，0 表示使用默认值"`
	ConversationID   string   `json:"conversation_id,omitempty" jsonschema:"限定 Tier 1 检索的对话 ID"`
}

// BuildContextOutput 构建上下文工具输出
type BuildContextOutput struct {
	Summary     string         `json:"summary" jsonschema:"可直接注入提示词的文本摘要"`
	TierCounts  map[string]int `json:"tier_counts" jsonschema:"各层条目数"`
	TotalBudget int            `json:"total_budget" jsonschema:"总 token 预算"`
	TotalUsed   int            `json:"total_used" jsonschema:"实际使用的 token 数"`
	Warnings    []string       `json:"warnings,omitempty" jsonschema:"降级与截断告警"`
}

// buildContextTool 跨层构建上下文组合工具
func (s *MCPServer) buildContextTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input BuildContextInput,
) (*mcp.CallToolResult, BuildContextOutput, error) {
	bundle, err := s.orchestrator.BuildContext(ctx, &contextengine.Request{
		UserRequest:      input.UserRequest,
		CurrentFiles:     input.CurrentFiles,
		TotalTokenBudget: input.TotalTokenBudget,
		ConversationID:   input.ConversationID,
	})
	if err != nil {
		return nil, BuildContextOutput{}, err
	}

	output := BuildContextOutput{
		Summary: bundle.RenderSummary(),
		TierCounts: map[string]int{
			"working_memory":  len(bundle.Tier1Items),
			"knowledge_graph": len(bundle.Tier2Items),
			"signals":         len(bundle.Tier3Items),
		},
		Warnings: bundle.Warnings,
	}
	if bundle.BudgetReport != nil {
		output.TotalBudget = bundle.BudgetReport.TotalBudget
		for _, tierBudget := range bundle.BudgetReport.Tiers {
			output.TotalUsed += tierBudget.Used
		}
	}

	return nil, output, nil
}
