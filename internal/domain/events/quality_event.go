package events

import "time"

// QualityEvent 质量变化事件
// 当某层健康度跌入 POOR 时由 QualityMonitor 发布，用于运维告警
type QualityEvent struct {
	// EventType 事件类型
	EventType EventType
	// TierName 层级名称（working_memory/knowledge_graph/signals）
	TierName string
	// OverallScore 总体健康分（0-10）
	OverallScore float64
	// Status 健康等级
	Status string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *QualityEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *QualityEvent) Timestamp() time.Time {
	return e.EventTime
}
