package mcp

import (
	"context"
	"fmt"

	"github.com/memtier/backend/internal/domain/signal"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReportSignalInput 上报信号工具输入
type ReportSignalInput struct {
	Key        string                 `json:"key" jsonschema:"信号 key，文件路径或 global"`
	Payload    map[string]interface{} `json:"payload" jsonschema:"不透明指标负载"`
	TTLSeconds int64                  `json:"ttl_seconds,omitempty" jsonschema:"新鲜度窗口秒数，0 表示默认值"`
}

// ReportSignalOutput 上报信号工具输出
type ReportSignalOutput struct {
	Success bool   `json:"success" jsonschema:"是否成功"`
	Key     string `json:"key" jsonschema:"写入的 key"`
}

// reportSignalTool 写入 Tier 3 信号快照
func (s *MCPServer) reportSignalTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ReportSignalInput,
) (*mcp.CallToolResult, ReportSignalOutput, error) {
	if input.Key == "" {
		return nil, ReportSignalOutput{}, fmt.Errorf("signal key is required")
	}

	s.signals.Report(input.Key, input.Payload, input.TTLSeconds)
	return nil, ReportSignalOutput{Success: true, Key: input.Key}, nil
}

// GetSignalsInput 查询信号工具输入（空输入）
type GetSignalsInput struct{}

// GetSignalsOutput 查询信号工具输出
type GetSignalsOutput struct {
	Signals []*signal.Snapshot `json:"signals" jsonschema:"当前全部新鲜快照"`
	Total   int                `json:"total" jsonschema:"快照数量"`
}

// getSignalsTool 列出全部新鲜信号快照
func (s *MCPServer) getSignalsTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input GetSignalsInput,
) (*mcp.CallToolResult, GetSignalsOutput, error) {
	snapshots := s.signals.Snapshots()
	return nil, GetSignalsOutput{Signals: snapshots, Total: len(snapshots)}, nil
}
