// Package token 提供预算核算所需的 Token 计数能力
package token

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Estimator Token 计数接口
type Estimator interface {
	// CountTokens 计算文本的 Token 数量
	CountTokens(text string) int
	// GetMethod 返回计算方法标识
	GetMethod() string
}

// TiktokenEstimator 使用 tiktoken 精确估算 Token 数量
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

// tiktokenInstance 单例实例
var (
	tiktokenInstance *TiktokenEstimator
	tiktokenOnce     sync.Once
	tiktokenErr      error
)

// GetTiktokenEstimator 获取 TiktokenEstimator 单例
// 使用单例模式避免重复加载编码文件
func GetTiktokenEstimator() (*TiktokenEstimator, error) {
	tiktokenOnce.Do(func() {
		// 使用 cl100k_base 编码（GPT-4、Claude 等模型兼容）
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tiktokenErr = err
			return
		}
		tiktokenInstance = &TiktokenEstimator{
			encoding: enc,
		}
	})

	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return tiktokenInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (e *TiktokenEstimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	tokens := e.encoding.Encode(text, nil, nil)
	return len(tokens)
}

// GetMethod 返回计算方法标识
func (e *TiktokenEstimator) GetMethod() string {
	return "tiktoken"
}

// CharEstimator 字符估算回退实现（约 4 字符一个 Token）
// tiktoken 编码文件加载失败时使用
type CharEstimator struct{}

// CountTokens 按字符数估算 Token 数量
func (e *CharEstimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// GetMethod 返回计算方法标识
func (e *CharEstimator) GetMethod() string {
	return "char"
}

// NewEstimator 创建 Token 估算器
// 优先使用 tiktoken，初始化失败时回退到字符估算
func NewEstimator() Estimator {
	est, err := GetTiktokenEstimator()
	if err != nil {
		return &CharEstimator{}
	}
	return est
}

// 编译时检查接口实现
var (
	_ Estimator = (*TiktokenEstimator)(nil)
	_ Estimator = (*CharEstimator)(nil)
)
