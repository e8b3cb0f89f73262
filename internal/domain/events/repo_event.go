package events

import "time"

// RepoFileEvent 仓库文件变更事件
// 由 FileWatcher 在受监听仓库根目录下的文件变化时发布
type RepoFileEvent struct {
	// EventType 事件类型（created/modified/deleted）
	EventType EventType
	// FilePath 相对仓库根目录的文件路径
	FilePath string
	// AbsPath 绝对路径
	AbsPath string
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *RepoFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *RepoFileEvent) Timestamp() time.Time {
	return e.EventTime
}
