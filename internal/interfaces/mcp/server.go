package mcp

import (
	"net/http"

	appContext "github.com/memtier/backend/internal/application/contextengine"
	appKnowledge "github.com/memtier/backend/internal/application/knowledge"
	appSignals "github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPServer MCP 服务器
// 编码助手通过 /mcp/sse 端点以工具调用的方式读写三层记忆
type MCPServer struct {
	server       *mcp.Server
	handler      http.Handler
	orchestrator *appContext.Orchestrator
	workingmem   *workingmem.Service
	knowledge    *appKnowledge.Service
	signals      *appSignals.Service
	monitor      *appContext.Monitor
}

// NewServer 创建 MCP 服务器
func NewServer(
	orchestrator *appContext.Orchestrator,
	workingmemService *workingmem.Service,
	knowledgeService *appKnowledge.Service,
	signalsService *appSignals.Service,
	monitor *appContext.Monitor,
) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "memtier-daemon",
			Version: "0.1.0",
		},
		nil, // 使用默认能力
	)

	mcpServer := &MCPServer{
		server:       server,
		orchestrator: orchestrator,
		workingmem:   workingmemService,
		knowledge:    knowledgeService,
		signals:      signalsService,
		monitor:      monitor,
	}

	// 注册工具：get_daemon_status
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_daemon_status",
		Description: "Get the status of the memtier daemon: running state, version, database path, per-tier item counts and health. No parameters required.",
	}, mcpServer.getDaemonStatusTool)

	// 注册工具：build_context
	mcp.AddTool(server, &mcp.Tool{
		Name: "build_context",
		Description: `Build a context bundle for the current task from all three memory tiers (working memory, knowledge graph, repository signals).
Parameters:
- user_request (string, required): What the user is asking for right now. Be specific.
- current_files (array of strings, optional): Files currently being edited, used to pull in related signals and patterns.
- total_token_budget (int, optional): Token budget for the bundle, defaults to server configuration.
- conversation_id (string, optional): Scope Tier 1 retrieval to this conversation instead of recent turns.

Returns: items grouped by tier with relevance scores, a budget report, a quality report, and a rendered summary ready for prompt injection.`,
	}, mcpServer.buildContextTool)

	// 注册工具：record_turn
	mcp.AddTool(server, &mcp.Tool{
		Name: "record_turn",
		Description: `Record one conversation turn into working memory (Tier 1).
Parameters:
- role (string, required): "user" or "assistant"
- content (string, required): Turn content
- conversation_id (string, optional): Conversation to append to, defaults to the active conversation
- entities (array of strings, optional): Referenced files/symbols; extracted automatically from content when omitted

Returns: turn ID and the conversation it was appended to.`,
	}, mcpServer.recordTurnTool)

	// 注册工具：search_turns
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_turns",
		Description: `Search working memory turns by keyword with optional filters.
Parameters:
- query (string, optional): Keywords to match against content and entities
- conversation_id (string, optional): Restrict to one conversation
- role (string, optional): "user" or "assistant"
- entity (string, optional): Restrict to turns referencing this entity
- limit (int, optional): Max results, default 20

Returns: matching turns, newest first.`,
	}, mcpServer.searchTurnsTool)

	// 注册工具：save_pattern
	mcp.AddTool(server, &mcp.Tool{
		Name: "save_pattern",
		Description: `Save a learned pattern into the knowledge graph (Tier 2). Use this when a solution, convention, or decision is worth remembering across conversations.
Parameters:
- title (string, required): Short pattern title
- category (string, optional): e.g. "error_handling", "architecture", "convention"
- confidence (float, required): Initial confidence in [0,1]
- context (object, optional): Structured payload with the pattern substance

Returns: the stored pattern with its ID.`,
	}, mcpServer.savePatternTool)

	// 注册工具：search_patterns
	mcp.AddTool(server, &mcp.Tool{
		Name: "search_patterns",
		Description: `Search learned patterns, ranked by match score, confidence, and usage.
Parameters:
- query (string, optional): Keywords
- category (string, optional): Restrict to one category
- min_confidence (float, optional): Confidence floor
- limit (int, optional): Max results, default 10

Returns: ranked patterns. Call boost_pattern after applying one.`,
	}, mcpServer.searchPatternsTool)

	// 注册工具：boost_pattern
	mcp.AddTool(server, &mcp.Tool{
		Name: "boost_pattern",
		Description: `Boost a pattern's confidence after successfully applying it. Counteracts time decay for patterns that keep proving useful.
Parameters:
- pattern_id (string, required): Pattern to boost
- conversation_id (string, optional): Conversation where it was applied

Returns: the pattern with updated confidence and usage count.`,
	}, mcpServer.boostPatternTool)

	// 注册工具：record_relationship
	mcp.AddTool(server, &mcp.Tool{
		Name: "record_relationship",
		Description: `Record an observed relationship between two entities (files, modules, concepts). Repeated observations converge by moving average instead of growing unbounded.
Parameters:
- subject (string, required): e.g. "internal/api/handler.go"
- object (string, required): e.g. "internal/api/middleware.go"
- relationship_type (string, optional): e.g. "often_modified_with", defaults to "related_to"
- strength (float, required): Observed strength in [0,1]

Returns: the relationship edge with smoothed strength.`,
	}, mcpServer.recordRelationshipTool)

	// 注册工具：report_signal
	mcp.AddTool(server, &mcp.Tool{
		Name: "report_signal",
		Description: `Report a repository signal snapshot (Tier 3): churn, hotspots, test or build health. Keyed per file path or "global" for repository-wide signals.
Parameters:
- key (string, required): File path or "global"
- payload (object, required): Opaque metrics, e.g. {"churn_score": 0.8}
- ttl_seconds (int, optional): Freshness window, defaults to server configuration

Returns: success flag.`,
	}, mcpServer.reportSignalTool)

	// 注册工具：get_signals
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_signals",
		Description: "List all fresh repository signal snapshots. Stale snapshots are excluded. No parameters required.",
	}, mcpServer.getSignalsTool)

	// 注册工具：run_decay
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_decay",
		Description: "Run one confidence decay sweep over the knowledge graph immediately. Patterns below the confidence floor are pruned. No parameters required. Returns decayed and pruned counts.",
	}, mcpServer.runDecayTool)

	// 创建 SSE Handler
	handler := mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			// 每个请求返回同一个服务器实例
			return server
		},
		nil, // SSEOptions，使用默认值
	)

	mcpServer.handler = handler
	return mcpServer
}

// GetHandler 获取 HTTP Handler（用于集成到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Start 启动服务器
// MCP 服务器通过 HTTP Handler 提供服务，由 HTTP 服务器统一管理，不需要单独启动
func (s *MCPServer) Start() error {
	return nil
}

// Stop 停止服务器
func (s *MCPServer) Stop() error {
	// HTTP/SSE 模式下，由 HTTP 服务器统一管理生命周期
	return nil
}
