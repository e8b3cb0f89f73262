// Package contextengine 实现相关性打分、预算分配、质量监控和上下文编排
package contextengine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/config"
)

// Scorer 相关性打分器
// 各层分值独立计算并收敛到 [0,1]，跨层可比性由预算分配阶段保证
type Scorer struct {
	// recencyHalfLife Tier 1 新近度半衰期，与 Tier 2 置信度衰减互相独立
	recencyHalfLife time.Duration
}

// NewScorer 创建打分器
func NewScorer(cfg *config.WorkingMemConfig) *Scorer {
	halfLife := cfg.RecencyHalfLife
	if halfLife <= 0 {
		halfLife = 6 * time.Hour
	}
	return &Scorer{recencyHalfLife: halfLife}
}

// requestKeywords 请求关键词：用户请求分词 + 当前文件路径
func requestKeywords(req *contextengine.Request) []string {
	keywords := strings.Fields(strings.ToLower(req.UserRequest))
	for _, f := range req.CurrentFiles {
		keywords = append(keywords, strings.ToLower(f))
	}
	return keywords
}

// ScoreTurn Tier 1 轮次打分：关键词/实体重合度 × 新近度衰减
func (s *Scorer) ScoreTurn(req *contextengine.Request, turn *conversation.Turn) float64 {
	keywords := requestKeywords(req)
	if len(keywords) == 0 {
		return 0
	}

	content := strings.ToLower(turn.Content)
	matched := 0
	for _, kw := range keywords {
		if strings.Contains(content, kw) {
			matched++
			continue
		}
		for _, e := range turn.Entities {
			if strings.Contains(strings.ToLower(e), kw) {
				matched++
				break
			}
		}
	}
	overlap := float64(matched) / float64(len(keywords))

	// 半衰期指数衰减：每过一个半衰期新近度减半
	elapsed := time.Since(turn.Timestamp)
	if elapsed < 0 {
		elapsed = 0
	}
	recency := math.Exp2(-float64(elapsed) / float64(s.recencyHalfLife))

	return clamp01(overlap * recency)
}

// ScorePattern Tier 2 模式打分：0.6×文本匹配 + 0.4×置信度
func (s *Scorer) ScorePattern(req *contextengine.Request, p *knowledge.Pattern) float64 {
	keywords := strings.Fields(strings.ToLower(req.UserRequest))
	match := 0.0
	if len(keywords) > 0 {
		haystack := strings.ToLower(p.Title + " " + p.Category)
		matched := 0
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				matched++
			}
		}
		match = float64(matched) / float64(len(keywords))
	}

	return clamp01(0.6*match + 0.4*p.Confidence)
}

// ScoreSignal Tier 3 信号打分：被引用文件优先，高翻动负载加成
func (s *Scorer) ScoreSignal(req *contextengine.Request, snapshot *signal.Snapshot) float64 {
	base := 0.2

	if snapshot.Key == signal.GlobalKey {
		// 全仓库级信号对任何请求都有基础价值
		base = 0.5
	} else {
		for _, f := range req.CurrentFiles {
			if strings.EqualFold(f, snapshot.Key) {
				base = 0.8
				break
			}
		}
		if base < 0.8 && strings.Contains(strings.ToLower(req.UserRequest), strings.ToLower(snapshot.Key)) {
			base = 0.8
		}
	}

	// 高翻动文件用于主动风险提示，相关性更高
	return clamp01(base + 0.2*snapshot.ChurnScore())
}

// TierRelevance 单层聚合相关性：top-K 均值（K=3）
// 用均值而不是最大值，避免单个异常条目拉高整层预算
func TierRelevance(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	k := 3
	if len(sorted) < k {
		k = len(sorted)
	}

	sum := 0.0
	for i := 0; i < k; i++ {
		sum += sorted[i]
	}
	return clamp01(sum / float64(k))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
