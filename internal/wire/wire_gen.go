// Code generated by Wire. DO NOT EDIT.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package wire

import (
	"github.com/memtier/backend/internal/application/contextengine"
	"github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/embedding"
	"github.com/memtier/backend/internal/infrastructure/signalcache"
	"github.com/memtier/backend/internal/infrastructure/storage"
	"github.com/memtier/backend/internal/infrastructure/token"
	"github.com/memtier/backend/internal/infrastructure/vector"
	"github.com/memtier/backend/internal/infrastructure/watcher"
	"github.com/memtier/backend/internal/infrastructure/websocket"
	"github.com/memtier/backend/internal/interfaces/http"
	"github.com/memtier/backend/internal/interfaces/http/handler"
	"github.com/memtier/backend/internal/interfaces/mcp"
)

// Injectors from wire.go:

// InitializeAll 初始化所有服务（HTTP + MCP）
func InitializeAll() (*App, error) {
	configConfig := config.NewConfig()
	databaseConfig := config.NewDatabaseConfig(configConfig)
	db, err := storage.ProvideDB(databaseConfig)
	if err != nil {
		return nil, err
	}
	repository := storage.NewConversationRepository(db)
	workingMemConfig := config.NewWorkingMemConfig(configConfig)
	service := workingmem.NewService(repository, workingMemConfig)
	patternRepository := storage.NewPatternRepository(db)
	relationshipRepository := storage.NewRelationshipRepository(db)
	knowledgeConfig := config.NewKnowledgeConfig(configConfig)
	embeddingConfig := config.NewEmbeddingConfig(configConfig)
	client := embedding.ProvideClient(embeddingConfig)
	patternIndex := vector.ProvidePatternIndex(embeddingConfig)
	semanticIndex := knowledge.NewSemanticIndex(client, patternIndex)
	knowledgeService := knowledge.NewService(patternRepository, relationshipRepository, knowledgeConfig, semanticIndex)
	signalsConfig := config.NewSignalsConfig(configConfig)
	cache := signalcache.NewCache(signalsConfig)
	eventBus := watcher.ProvideEventBus()
	signalsService := signals.NewService(cache, eventBus)
	scorer := contextengine.NewScorer(workingMemConfig)
	estimator := token.NewEstimator()
	allocator := contextengine.NewAllocator(estimator)
	qualityConfig := config.NewQualityConfig(configConfig)
	monitor := contextengine.NewMonitor(qualityConfig, service, knowledgeService, signalsService, eventBus)
	orchestratorConfig := config.NewOrchestratorConfig(configConfig)
	orchestrator := contextengine.NewOrchestrator(service, knowledgeService, signalsService, scorer, allocator, monitor, orchestratorConfig)
	contextHandler := handler.NewContextHandler(orchestrator)
	memoryHandler := handler.NewMemoryHandler(service)
	knowledgeHandler := handler.NewKnowledgeHandler(knowledgeService)
	signalsHandler := handler.NewSignalsHandler(signalsService)
	qualityHandler := handler.NewQualityHandler(monitor)
	hub := websocket.NewHub()
	webSocketConfig := config.NewWebSocketConfig(configConfig)
	wsHandler := handler.NewWSHandler(hub, webSocketConfig)
	mcpServer := mcp.NewServer(orchestrator, service, knowledgeService, signalsService, monitor)
	serverConfig := config.NewServerConfig(configConfig)
	v := http.NewServer(contextHandler, memoryHandler, knowledgeHandler, signalsHandler, qualityHandler, wsHandler, mcpServer, serverConfig)
	sweepScheduler := knowledge.NewSweepScheduler(knowledgeService, knowledgeConfig)
	assessScheduler := contextengine.NewAssessScheduler(monitor, qualityConfig)
	fileWatcher, err := watcher.ProvideFileWatcher(signalsConfig, eventBus)
	if err != nil {
		return nil, err
	}
	app := NewApp(v, mcpServer, hub, signalsService, sweepScheduler, assessScheduler, eventBus, fileWatcher, db)
	return app, nil
}
