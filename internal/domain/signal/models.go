package signal

import "time"

// GlobalKey 全仓库级信号的约定 key
const GlobalKey = "global"

// Snapshot Tier 3 仓库信号快照
// 信号本身（代码翻动率、热点、测试/构建健康度）由外部采集进程计算后写入
type Snapshot struct {
	Key string `json:"key"`
	// Payload 不透明指标负载
	Payload    map[string]interface{} `json:"payload"`
	ComputedAt time.Time              `json:"computed_at"`
	TTLSeconds int64                  `json:"ttl_seconds"`
}

// IsStale 快照是否过期
// now > computed_at + ttl 即为过期；过期快照必须按缓存未命中处理
func (s *Snapshot) IsStale(now time.Time) bool {
	return now.After(s.ComputedAt.Add(time.Duration(s.TTLSeconds) * time.Second))
}

// ChurnScore 从负载中读取翻动率分值，缺失时返回 0
// 下游用高翻动文件做主动提示，故其相关性更高
func (s *Snapshot) ChurnScore() float64 {
	if s.Payload == nil {
		return 0
	}
	v, ok := s.Payload["churn_score"]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
