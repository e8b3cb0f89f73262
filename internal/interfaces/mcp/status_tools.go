package mcp

import (
	"context"

	"github.com/memtier/backend/internal/infrastructure/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DaemonStatusInput 守护进程状态工具输入（空输入）
type DaemonStatusInput struct{}

// TierStatus 单层状态
type TierStatus struct {
	Items  int     `json:"items" jsonschema:"条目数"`
	Health string  `json:"health" jsonschema:"健康等级"`
	Score  float64 `json:"score" jsonschema:"健康分（0-10）"`
}

// DaemonStatusOutput 守护进程状态工具输出
type DaemonStatusOutput struct {
	Status        string                `json:"status" jsonschema:"运行状态"`
	Version       string                `json:"version" jsonschema:"版本号"`
	DBPath        string                `json:"db_path" jsonschema:"数据库路径"`
	Tiers         map[string]TierStatus `json:"tiers" jsonschema:"各层状态"`
	Relationships int                   `json:"relationships" jsonschema:"关系边数量"`
}

// getDaemonStatusTool 获取守护进程状态工具
func (s *MCPServer) getDaemonStatusTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input DaemonStatusInput,
) (*mcp.CallToolResult, DaemonStatusOutput, error) {
	output := DaemonStatusOutput{
		Status:  "running",
		Version: "v0.1.0",
		DBPath:  storage.GetDBPath(),
		Tiers:   make(map[string]TierStatus),
	}

	conversations, _ := s.workingmem.CountConversations()
	patterns, _ := s.knowledge.CountPatterns()
	relationships, _ := s.knowledge.CountRelationships()
	output.Relationships = relationships

	counts := map[string]int{
		"working_memory":  conversations,
		"knowledge_graph": patterns,
		"signals":         s.signals.Count(),
	}

	report := s.monitor.AssessAll()
	for name, count := range counts {
		status := TierStatus{Items: count}
		if quality, ok := report.Tiers[name]; ok {
			status.Health = string(quality.Status)
			status.Score = quality.OverallScore
		}
		output.Tiers[name] = status
	}

	return nil, output, nil
}
