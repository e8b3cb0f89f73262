package config

import "time"

// Config 应用配置
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	WorkingMem   WorkingMemConfig   `yaml:"working_memory"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Signals      SignalsConfig      `yaml:"signals"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Quality      QualityConfig      `yaml:"quality"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `yaml:"http_port"` // 固定端口，用于单例锁
	MCPPort  string `yaml:"mcp_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Path string `yaml:"path"` // 留空表示使用数据目录下的默认路径
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size"`
	WriteBufferSize int `yaml:"write_buffer_size"`
}

// WorkingMemConfig Tier 1 短期对话缓存配置
type WorkingMemConfig struct {
	// MaxConversations 有界容量 N（按对话计数，不按轮次）
	MaxConversations int `yaml:"max_conversations"`
	// ContextTurns 活跃对话中 GetContext 返回的最近 K 轮
	ContextTurns int `yaml:"context_turns"`
	// RecencyHalfLife 相关性打分的新近度半衰期
	RecencyHalfLife time.Duration `yaml:"recency_half_life"`
}

// KnowledgeConfig Tier 2 模式图谱配置
type KnowledgeConfig struct {
	// DecayRate 每个衰减区间的衰减比例
	DecayRate float64 `yaml:"decay_rate"`
	// DecayIntervalDays 衰减区间天数
	DecayIntervalDays int `yaml:"decay_interval_days"`
	// ConfidenceFloor 剪枝下限
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	// BoostAmount 复用时的置信度增量
	BoostAmount float64 `yaml:"boost_amount"`
	// SweepInterval 后台衰减清扫间隔，0 表示禁用定时清扫
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// SignalsConfig Tier 3 信号缓存配置
type SignalsConfig struct {
	// DefaultTTLSeconds 未显式指定时的快照 TTL
	DefaultTTLSeconds int64 `yaml:"default_ttl_seconds"`
	// MaxEntries LRU 容量上限，防止 per-file key 空间无界增长
	MaxEntries int `yaml:"max_entries"`
	// WatchRoots 受监听的仓库根目录，文件变化触发对应 key 失效
	WatchRoots []string `yaml:"watch_roots"`
}

// OrchestratorConfig 编排器配置
type OrchestratorConfig struct {
	// TierTimeout 扇出阶段单层查询超时
	TierTimeout time.Duration `yaml:"tier_timeout"`
	// BundleTTL 组合结果缓存 TTL
	BundleTTL time.Duration `yaml:"bundle_ttl"`
	// DefaultBudget 请求未携带预算时的默认总预算
	DefaultBudget int `yaml:"default_budget"`
	// CandidateLimit 每层进入打分的候选条数上限
	CandidateLimit int `yaml:"candidate_limit"`
}

// QualityConfig 质量监控配置
type QualityConfig struct {
	// AssessInterval 定时评估间隔，0 表示禁用
	AssessInterval time.Duration `yaml:"assess_interval"`
	// MinConversations Tier 1 覆盖度健康所需的最少对话数
	MinConversations int `yaml:"min_conversations"`
	// MinPatterns Tier 2 覆盖度健康所需的最少模式数
	MinPatterns int `yaml:"min_patterns"`
	// MinSignals Tier 3 覆盖度健康所需的最少快照数
	MinSignals int `yaml:"min_signals"`
}

// EmbeddingConfig 语义索引配置（可选）
// BaseURL 为空表示禁用语义检索，模式搜索退化为词法匹配
type EmbeddingConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
}

// NewConfig 创建配置（默认值 + 可选 YAML 覆盖）
func NewConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: ":19970",
			MCPPort:  ":19971",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		WorkingMem: WorkingMemConfig{
			MaxConversations: 50,
			ContextTurns:     10,
			RecencyHalfLife:  6 * time.Hour,
		},
		Knowledge: KnowledgeConfig{
			DecayRate:         0.05,
			DecayIntervalDays: 30,
			ConfidenceFloor:   0.3,
			BoostAmount:       0.05,
			SweepInterval:     24 * time.Hour,
		},
		Signals: SignalsConfig{
			DefaultTTLSeconds: 3600,
			MaxEntries:        4096,
		},
		Orchestrator: OrchestratorConfig{
			TierTimeout:    2 * time.Second,
			BundleTTL:      5 * time.Minute,
			DefaultBudget:  4000,
			CandidateLimit: 50,
		},
		Quality: QualityConfig{
			AssessInterval:   10 * time.Minute,
			MinConversations: 5,
			MinPatterns:      10,
			MinSignals:       1,
		},
	}

	// 叠加用户配置文件（如果存在）
	applyFileOverrides(cfg)

	return cfg
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewWebSocketConfig 创建 WebSocket 配置
func NewWebSocketConfig(cfg *Config) *WebSocketConfig {
	return &cfg.WebSocket
}

// NewWorkingMemConfig 创建 Tier 1 配置
func NewWorkingMemConfig(cfg *Config) *WorkingMemConfig {
	return &cfg.WorkingMem
}

// NewKnowledgeConfig 创建 Tier 2 配置
func NewKnowledgeConfig(cfg *Config) *KnowledgeConfig {
	return &cfg.Knowledge
}

// NewSignalsConfig 创建 Tier 3 配置
func NewSignalsConfig(cfg *Config) *SignalsConfig {
	return &cfg.Signals
}

// NewOrchestratorConfig 创建编排器配置
func NewOrchestratorConfig(cfg *Config) *OrchestratorConfig {
	return &cfg.Orchestrator
}

// NewQualityConfig 创建质量监控配置
func NewQualityConfig(cfg *Config) *QualityConfig {
	return &cfg.Quality
}

// NewEmbeddingConfig 创建语义索引配置
func NewEmbeddingConfig(cfg *Config) *EmbeddingConfig {
	return &cfg.Embedding
}
