package contextengine

import "errors"

var (
	// ErrEmptyRequest 用户请求为空
	ErrEmptyRequest = errors.New("user request is empty")
	// ErrInvalidBudget 总预算必须为正整数
	ErrInvalidBudget = errors.New("total token budget must be positive")
	// ErrTierUnavailable 单层查询失败或超时（编排器内部降级，不向调用方传播）
	ErrTierUnavailable = errors.New("tier query failed or timed out")
)
