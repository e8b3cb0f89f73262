package knowledge

import (
	"log/slog"
	"sync"
	"time"

	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// SweepScheduler 后台衰减清扫调度器
// 按固定间隔执行 ApplyDecay；HTTP/MCP 仍可随时触发按需清扫
type SweepScheduler struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSweepScheduler 创建清扫调度器
func NewSweepScheduler(service *Service, cfg *config.KnowledgeConfig) *SweepScheduler {
	return &SweepScheduler{
		service:  service,
		interval: cfg.SweepInterval,
		logger:   log.NewModuleLogger("knowledge", "maintenance"),
		stopCh:   make(chan struct{}),
	}
}

// Start 启动调度器；间隔为 0 时禁用定时清扫
func (s *SweepScheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Decay sweep scheduler disabled")
		return
	}

	s.logger.Info("Starting decay sweep scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run()
}

// Stop 停止调度器
func (s *SweepScheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *SweepScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if _, err := s.service.ApplyDecay(); err != nil {
				s.logger.Error("Scheduled decay sweep failed", "error", err)
			}
		}
	}
}
