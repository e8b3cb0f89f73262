// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 仓库文件相关事件类型
const (
	// RepoFileModified 受监听仓库文件被修改
	RepoFileModified EventType = "repo.file.modified"
	// RepoFileCreated 受监听仓库文件被创建
	RepoFileCreated EventType = "repo.file.created"
	// RepoFileDeleted 受监听仓库文件被删除
	RepoFileDeleted EventType = "repo.file.deleted"
)

// 信号缓存相关事件类型
const (
	// SignalInvalidated 信号快照被主动失效
	SignalInvalidated EventType = "signal.invalidated"
)

// 质量监控相关事件类型
const (
	// QualityDegraded 某层健康度降为 POOR
	QualityDegraded EventType = "quality.degraded"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
