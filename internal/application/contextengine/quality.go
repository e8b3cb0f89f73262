package contextengine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/domain/events"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/log"
)

// latencyRingSize 每层保留的最近延迟样本数
const latencyRingSize = 64

// latencyRing 固定容量的延迟环形缓冲
type latencyRing struct {
	samples [latencyRingSize]time.Duration
	next    int
	filled  int
}

func (r *latencyRing) record(d time.Duration) {
	r.samples[r.next] = d
	r.next = (r.next + 1) % latencyRingSize
	if r.filled < latencyRingSize {
		r.filled++
	}
}

func (r *latencyRing) average() time.Duration {
	if r.filled == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < r.filled; i++ {
		sum += r.samples[i]
	}
	return sum / time.Duration(r.filled)
}

// 各层健康度阈值
var (
	// stalenessThresholds 该层数据多久没有写入算“开始变陈旧”
	stalenessThresholds = map[contextengine.Tier]time.Duration{
		contextengine.TierWorkingMemory: 24 * time.Hour,
		contextengine.TierKnowledge:     90 * 24 * time.Hour,
		contextengine.TierSignals:       7 * 24 * time.Hour,
	}
	// latencyTargets 查询延迟目标，超过 2 倍开始降级
	latencyTargets = map[contextengine.Tier]time.Duration{
		contextengine.TierWorkingMemory: 50 * time.Millisecond,
		contextengine.TierKnowledge:     100 * time.Millisecond,
		contextengine.TierSignals:       20 * time.Millisecond,
	}
)

// Monitor 质量监控器
// 纯咨询性质：评估结果只用于报告和告警，从不阻塞上下文构建
type Monitor struct {
	config     *config.QualityConfig
	workingmem *workingmem.Service
	knowledge  *knowledge.Service
	signals    *signals.Service
	eventBus   events.EventBus
	logger     *slog.Logger

	mu        sync.Mutex
	latencies map[contextengine.Tier]*latencyRing
	// lastStatus 上次评估状态，用于检测跌入 POOR 的沿触发
	lastStatus map[contextengine.Tier]contextengine.HealthStatus
}

// NewMonitor 创建质量监控器
func NewMonitor(
	cfg *config.QualityConfig,
	workingmemSvc *workingmem.Service,
	knowledgeSvc *knowledge.Service,
	signalsSvc *signals.Service,
	eventBus events.EventBus,
) *Monitor {
	return &Monitor{
		config:     cfg,
		workingmem: workingmemSvc,
		knowledge:  knowledgeSvc,
		signals:    signalsSvc,
		eventBus:   eventBus,
		logger:     log.NewModuleLogger("contextengine", "quality"),
		latencies: map[contextengine.Tier]*latencyRing{
			contextengine.TierWorkingMemory: {},
			contextengine.TierKnowledge:     {},
			contextengine.TierSignals:       {},
		},
		lastStatus: make(map[contextengine.Tier]contextengine.HealthStatus),
	}
}

// RecordLatency 记录一次单层查询延迟（编排器扇出阶段调用）
func (m *Monitor) RecordLatency(tier contextengine.Tier, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ring, ok := m.latencies[tier]; ok {
		ring.record(d)
	}
}

// Assess 评估单层健康度
func (m *Monitor) Assess(tier contextengine.Tier) *contextengine.TierQuality {
	staleness := m.stalenessScore(tier)
	coverage := m.coverageScore(tier)
	performance := m.performanceScore(tier)

	overall := 0.4*staleness + 0.3*coverage + 0.3*performance

	quality := &contextengine.TierQuality{
		StalenessScore:   staleness,
		CoverageScore:    coverage,
		PerformanceScore: performance,
		OverallScore:     overall,
		Status:           statusFor(overall),
	}

	m.notifyIfDegraded(tier, quality)
	return quality
}

// AssessAll 评估全部层级
func (m *Monitor) AssessAll() *contextengine.QualityReport {
	report := &contextengine.QualityReport{
		Tiers:      make(map[string]*contextengine.TierQuality, 3),
		AssessedAt: time.Now(),
	}
	for tier := range stalenessThresholds {
		report.Tiers[tier.String()] = m.Assess(tier)
	}
	return report
}

// statusFor 总分到健康等级的映射
func statusFor(overall float64) contextengine.HealthStatus {
	switch {
	case overall >= 8.5:
		return contextengine.StatusExcellent
	case overall >= 7.0:
		return contextengine.StatusGood
	case overall >= 5.0:
		return contextengine.StatusFair
	default:
		return contextengine.StatusPoor
	}
}

// stalenessScore 新鲜度子分：最近写入越久分越低，线性衰减到 0
func (m *Monitor) stalenessScore(tier contextengine.Tier) float64 {
	var lastWrite time.Time

	switch tier {
	case contextengine.TierWorkingMemory:
		ts, err := m.workingmem.LastWriteTime()
		if err != nil || ts == 0 {
			return 5 // 无数据时给中性分，空库由覆盖度体现
		}
		lastWrite = time.UnixMilli(ts)
	case contextengine.TierKnowledge:
		ts, err := m.knowledge.LastWriteTime()
		if err != nil || ts == 0 {
			return 5
		}
		lastWrite = time.UnixMilli(ts)
	case contextengine.TierSignals:
		lastWrite = m.signals.LastWriteTime()
		if lastWrite.IsZero() {
			return 5
		}
	default:
		return 0
	}

	threshold := stalenessThresholds[tier]
	age := time.Since(lastWrite)
	if age <= 0 {
		return 10
	}
	score := 10 * (1 - float64(age)/float64(threshold))
	if score < 0 {
		return 0
	}
	return score
}

// coverageScore 覆盖度子分：条目数相对配置最小值的比例
func (m *Monitor) coverageScore(tier contextengine.Tier) float64 {
	var count, min int

	switch tier {
	case contextengine.TierWorkingMemory:
		c, err := m.workingmem.CountConversations()
		if err != nil {
			return 0
		}
		count, min = c, m.config.MinConversations
	case contextengine.TierKnowledge:
		c, err := m.knowledge.CountPatterns()
		if err != nil {
			return 0
		}
		count, min = c, m.config.MinPatterns
	case contextengine.TierSignals:
		count, min = m.signals.Count(), m.config.MinSignals
	}

	if min <= 0 {
		return 10
	}
	score := 10 * float64(count) / float64(min)
	if score > 10 {
		return 10
	}
	return score
}

// performanceScore 性能子分：平均延迟相对目标的比例，超过 2 倍降到 5 以下
func (m *Monitor) performanceScore(tier contextengine.Tier) float64 {
	m.mu.Lock()
	avg := m.latencies[tier].average()
	m.mu.Unlock()

	if avg == 0 {
		return 10 // 没有样本不算降级
	}

	target := latencyTargets[tier]
	ratio := float64(avg) / float64(target)
	if ratio <= 1 {
		return 10
	}
	score := 10 - 5*(ratio-1)
	if score < 0 {
		return 0
	}
	return score
}

// notifyIfDegraded 跌入 POOR 的沿触发告警
func (m *Monitor) notifyIfDegraded(tier contextengine.Tier, quality *contextengine.TierQuality) {
	m.mu.Lock()
	previous := m.lastStatus[tier]
	m.lastStatus[tier] = quality.Status
	m.mu.Unlock()

	if quality.Status != contextengine.StatusPoor || previous == contextengine.StatusPoor {
		return
	}

	m.logger.Warn("Tier quality degraded to POOR",
		"tier", tier.String(),
		"overall", quality.OverallScore,
	)

	if m.eventBus != nil {
		m.eventBus.Publish(&events.QualityEvent{
			EventType:    events.QualityDegraded,
			TierName:     tier.String(),
			OverallScore: quality.OverallScore,
			Status:       string(quality.Status),
			EventTime:    time.Now(),
		})
	}
}

// AssessScheduler 定时质量评估调度器
type AssessScheduler struct {
	monitor  *Monitor
	interval time.Duration
	logger   *slog.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewAssessScheduler 创建评估调度器
func NewAssessScheduler(monitor *Monitor, cfg *config.QualityConfig) *AssessScheduler {
	return &AssessScheduler{
		monitor:  monitor,
		interval: cfg.AssessInterval,
		logger:   log.NewModuleLogger("contextengine", "quality_scheduler"),
		stopCh:   make(chan struct{}),
	}
}

// Start 启动调度器；间隔为 0 时禁用
func (s *AssessScheduler) Start() {
	if s.interval <= 0 {
		s.logger.Info("Quality assessment scheduler disabled")
		return
	}

	s.logger.Info("Starting quality assessment scheduler", "interval", s.interval)

	s.wg.Add(1)
	go s.run()
}

// Stop 停止调度器
func (s *AssessScheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *AssessScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.monitor.AssessAll()
		}
	}
}
