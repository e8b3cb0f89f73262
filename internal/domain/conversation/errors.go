package conversation

import "errors"

var (
	// ErrEmptyContent 轮次内容为空
	ErrEmptyContent = errors.New("turn content is empty")
	// ErrInvalidRole 非法的发言角色
	ErrInvalidRole = errors.New("invalid turn role, must be 'user' or 'assistant'")
	// ErrConversationNotFound 对话不存在
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrTurnNotFound 轮次不存在
	ErrTurnNotFound = errors.New("turn not found")
)
