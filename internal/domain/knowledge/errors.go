package knowledge

import "errors"

var (
	// ErrInvalidConfidence 置信度超出 [0,1]
	ErrInvalidConfidence = errors.New("pattern confidence must be in [0,1]")
	// ErrEmptyTitle 模式标题为空
	ErrEmptyTitle = errors.New("pattern title is empty")
	// ErrPatternNotFound 模式不存在
	ErrPatternNotFound = errors.New("pattern not found")
	// ErrInvalidStrength 关系强度超出 [0,1]
	ErrInvalidStrength = errors.New("relationship strength must be in [0,1]")
	// ErrEmptyEntity 关系端点为空
	ErrEmptyEntity = errors.New("relationship subject/object is empty")
)
