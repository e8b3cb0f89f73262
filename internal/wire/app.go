package wire

import (
	"database/sql"
	"time"

	"log/slog"

	appContext "github.com/memtier/backend/internal/application/contextengine"
	appKnowledge "github.com/memtier/backend/internal/application/knowledge"
	appSignals "github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/domain/events"
	applog "github.com/memtier/backend/internal/infrastructure/log"
	"github.com/memtier/backend/internal/infrastructure/watcher"
	"github.com/memtier/backend/internal/infrastructure/websocket"
	"github.com/memtier/backend/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	MCPServer  *interfaces.MCPServer
	wsHub      *websocket.Hub

	signalsService  *appSignals.Service
	sweepScheduler  *appKnowledge.SweepScheduler
	assessScheduler *appContext.AssessScheduler

	db     *sql.DB
	logger *slog.Logger

	// 文件监听相关
	eventBus         events.EventBus
	fileWatcher      *watcher.FileWatcher
	unsubscribeAlert func()
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	mcpServer *interfaces.MCPServer,
	wsHub *websocket.Hub,
	signalsService *appSignals.Service,
	sweepScheduler *appKnowledge.SweepScheduler,
	assessScheduler *appContext.AssessScheduler,
	eventBus events.EventBus,
	fileWatcher *watcher.FileWatcher,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:      httpServer,
		MCPServer:       mcpServer,
		wsHub:           wsHub,
		signalsService:  signalsService,
		sweepScheduler:  sweepScheduler,
		assessScheduler: assessScheduler,
		eventBus:        eventBus,
		fileWatcher:     fileWatcher,
		db:              db,
		logger:          applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting memtier daemon")

	// 信号服务订阅文件变更事件，保证快照失效先于监听启动
	a.signalsService.Start()
	a.setupEventSubscribers()

	// 启动文件监听（监听目录未配置时为空转）
	if a.fileWatcher != nil {
		if err := a.fileWatcher.Start(); err != nil {
			a.logger.Error("Failed to start file watcher",
				"error", err,
			)
		} else {
			a.logger.Info("File watcher started")
		}
	}

	// 启动后台调度：衰减清扫与质量评估
	a.sweepScheduler.Start()
	a.assessScheduler.Start()

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("memtier daemon started successfully")

	// MCP 服务器通过 HTTP Handler 提供服务，不需要单独启动
	// 已在 HTTP 服务器中注册 /mcp/sse 端点

	return nil
}

// setupEventSubscribers 注册事件订阅者
func (a *App) setupEventSubscribers() {
	if a.eventBus == nil {
		return
	}

	// 质量降级事件推送给 WebSocket 订阅者
	a.unsubscribeAlert = a.eventBus.Subscribe(
		events.QualityDegraded,
		events.HandlerFunc(func(event events.Event) error {
			qualityEvent, ok := event.(*events.QualityEvent)
			if !ok {
				return nil
			}
			return a.wsHub.Broadcast(map[string]interface{}{
				"type":          "quality_degraded",
				"tier":          qualityEvent.TierName,
				"overall_score": qualityEvent.OverallScore,
				"status":        qualityEvent.Status,
				"occurred_at":   qualityEvent.EventTime.Format(time.RFC3339),
			})
		}),
	)
	a.logger.Info("Quality alerts subscribed to WebSocket hub")
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping memtier daemon")

	// 先停调度器和监听，再停服务端口
	a.assessScheduler.Stop()
	a.sweepScheduler.Stop()

	if a.fileWatcher != nil {
		a.fileWatcher.Stop()
		a.logger.Info("File watcher stopped")
	}

	if a.unsubscribeAlert != nil {
		a.unsubscribeAlert()
	}
	a.signalsService.Stop()

	if a.eventBus != nil {
		a.eventBus.Close()
		a.logger.Info("Event bus closed")
	}

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
		return err
	}
	if err := a.MCPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop MCP server",
			"error", err,
		)
		return err
	}

	// 关闭数据库连接
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database connection",
				"error", err,
			)
			return err
		}
	}

	a.logger.Info("memtier daemon stopped successfully")

	return nil
}
