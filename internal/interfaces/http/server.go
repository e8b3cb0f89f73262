package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
	"github.com/memtier/backend/internal/interfaces/http/handler"
	"github.com/memtier/backend/internal/interfaces/http/middleware"
	"github.com/memtier/backend/internal/interfaces/mcp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/memtier/backend/docs" // Swagger docs
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	contextHandler *handler.ContextHandler,
	memoryHandler *handler.MemoryHandler,
	knowledgeHandler *handler.KnowledgeHandler,
	signalsHandler *handler.SignalsHandler,
	qualityHandler *handler.QualityHandler,
	wsHandler *handler.WSHandler,
	mcpServer *mcp.MCPServer,
	cfg *config.ServerConfig,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 上下文编排
		api.POST("/context", contextHandler.Build)

		// Tier 1 工作记忆
		api.POST("/memory/turns", memoryHandler.AppendTurn)
		api.POST("/memory/turns/:id/patterns", memoryHandler.LinkPattern)
		api.GET("/memory/recent", memoryHandler.Recent)
		api.GET("/memory/search", memoryHandler.Search)
		api.GET("/memory/conversations/:id/context", memoryHandler.GetContext)

		// Tier 2 模式图谱
		api.POST("/patterns", knowledgeHandler.CreatePattern)
		api.GET("/patterns/search", knowledgeHandler.SearchPatterns)
		api.GET("/patterns/:id", knowledgeHandler.GetPattern)
		api.POST("/patterns/:id/boost", knowledgeHandler.Boost)
		api.POST("/relationships", knowledgeHandler.CreateRelationship)
		api.GET("/relationships", knowledgeHandler.GetRelationships)
		api.POST("/maintenance/decay", knowledgeHandler.RunDecay)

		// Tier 3 仓库信号，key 可能是带斜杠的文件路径，用通配符捕获
		api.GET("/signals", signalsHandler.List)
		api.PUT("/signals/*key", signalsHandler.Report)
		api.GET("/signals/*key", signalsHandler.Get)
		api.DELETE("/signals/*key", signalsHandler.Invalidate)

		// 质量监控
		api.GET("/quality", qualityHandler.Report)
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 质量告警推送
	router.GET("/ws", wsHandler.Serve)

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// MCP SSE 端点
	if mcpServer != nil {
		router.Any("/mcp/sse", gin.WrapH(mcpServer.GetHandler()))
	}

	return &HTTPServer{
		router:   router,
		httpPort: cfg.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
