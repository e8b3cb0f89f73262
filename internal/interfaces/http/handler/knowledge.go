package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	appKnowledge "github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/interfaces/http/response"
)

// KnowledgeHandler Tier 2 模式图谱处理器
type KnowledgeHandler struct {
	service *appKnowledge.Service
}

// NewKnowledgeHandler 创建模式图谱处理器
func NewKnowledgeHandler(service *appKnowledge.Service) *KnowledgeHandler {
	return &KnowledgeHandler{service: service}
}

// CreatePatternRequest 保存模式请求体
type CreatePatternRequest struct {
	Title      string                 `json:"title" binding:"required"`
	Category   string                 `json:"category"`
	Confidence float64                `json:"confidence"`
	Context    map[string]interface{} `json:"context"`
}

// CreatePattern 保存模式
// @Summary 保存一条学习到的模式
// @Tags 模式图谱
// @Accept json
// @Produce json
// @Param body body CreatePatternRequest true "模式内容"
// @Success 200 {object} response.Response{data=knowledge.Pattern}
// @Failure 400 {object} response.ErrorResponse
// @Router /patterns [post]
func (h *KnowledgeHandler) CreatePattern(c *gin.Context) {
	var req CreatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400001, "参数错误")
		return
	}

	p := &knowledge.Pattern{
		Title:      req.Title,
		Category:   req.Category,
		Confidence: req.Confidence,
		Context:    req.Context,
	}
	if err := h.service.StorePattern(p); err != nil {
		switch {
		case errors.Is(err, knowledge.ErrEmptyTitle):
			response.Error(c, http.StatusBadRequest, 400002, "title 不能为空")
		case errors.Is(err, knowledge.ErrInvalidConfidence):
			response.Error(c, http.StatusBadRequest, 400003, "confidence 必须在 [0,1] 区间内")
		default:
			response.ErrorWithDetail(c, http.StatusInternalServerError, 400004, "保存模式失败", err.Error())
		}
		return
	}

	response.Success(c, p)
}

// GetPattern 查询单条模式
// @Summary 按 ID 查询模式
// @Tags 模式图谱
// @Produce json
// @Param id path string true "模式 ID"
// @Success 200 {object} response.Response{data=knowledge.Pattern}
// @Failure 404 {object} response.ErrorResponse
// @Router /patterns/{id} [get]
func (h *KnowledgeHandler) GetPattern(c *gin.Context) {
	p, err := h.service.GetPattern(c.Param("id"))
	if err != nil {
		if errors.Is(err, knowledge.ErrPatternNotFound) {
			response.Error(c, http.StatusNotFound, 400005, "模式不存在")
			return
		}
		response.ErrorWithDetail(c, http.StatusInternalServerError, 400006, "查询失败", err.Error())
		return
	}

	response.Success(c, p)
}

// SearchPatterns 搜索模式
// @Summary 按关键词与过滤条件搜索模式，按排序分降序
// @Tags 模式图谱
// @Produce json
// @Param q query string false "关键词"
// @Param category query string false "限定类别"
// @Param min_confidence query number false "置信度下限"
// @Param limit query int false "返回条数，默认 20"
// @Success 200 {object} response.Response{data=[]knowledge.Pattern}
// @Failure 500 {object} response.ErrorResponse
// @Router /patterns/search [get]
func (h *KnowledgeHandler) SearchPatterns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	minConfidence, _ := strconv.ParseFloat(c.DefaultQuery("min_confidence", "0"), 64)

	patterns, err := h.service.SearchPatterns(c.Query("q"), knowledge.SearchFilter{
		Category:      c.Query("category"),
		MinConfidence: minConfidence,
	}, limit)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, 400007, "搜索失败", err.Error())
		return
	}

	response.Success(c, patterns)
}

// BoostRequest 置信度提升请求体
type BoostRequest struct {
	// Amount 提升量，0 表示使用配置默认值
	Amount float64 `json:"amount"`
	// ConversationID 非空时同时记录模式在该对话中的应用
	ConversationID string `json:"conversation_id"`
}

// Boost 提升模式置信度
// @Summary 模式被复用时提升其置信度并累计使用次数
// @Tags 模式图谱
// @Accept json
// @Produce json
// @Param id path string true "模式 ID"
// @Param body body BoostRequest false "提升参数"
// @Success 200 {object} response.Response{data=knowledge.Pattern}
// @Failure 404 {object} response.ErrorResponse
// @Router /patterns/{id}/boost [post]
func (h *KnowledgeHandler) Boost(c *gin.Context) {
	var req BoostRequest
	// 空请求体视为默认提升
	_ = c.ShouldBindJSON(&req)

	p, err := h.service.Boost(c.Param("id"), req.Amount)
	if err != nil {
		if errors.Is(err, knowledge.ErrPatternNotFound) {
			response.Error(c, http.StatusNotFound, 400008, "模式不存在")
			return
		}
		response.ErrorWithDetail(c, http.StatusInternalServerError, 400009, "提升失败", err.Error())
		return
	}

	if req.ConversationID != "" {
		if err := h.service.RecordApplication(p.ID, req.ConversationID); err != nil {
			response.ErrorWithDetail(c, http.StatusInternalServerError, 400010, "记录应用失败", err.Error())
			return
		}
	}

	response.Success(c, p)
}

// CreateRelationshipRequest 记录关系请求体
type CreateRelationshipRequest struct {
	Subject          string  `json:"subject" binding:"required"`
	Object           string  `json:"object" binding:"required"`
	RelationshipType string  `json:"relationship_type"`
	Strength         float64 `json:"strength"`
}

// CreateRelationship 记录一次关系观察
// @Summary 记录两个实体之间的关系观察，重复观察按 EMA 收敛
// @Tags 模式图谱
// @Accept json
// @Produce json
// @Param body body CreateRelationshipRequest true "关系观察"
// @Success 200 {object} response.Response{data=knowledge.Relationship}
// @Failure 400 {object} response.ErrorResponse
// @Router /relationships [post]
func (h *KnowledgeHandler) CreateRelationship(c *gin.Context) {
	var req CreateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 400011, "参数错误")
		return
	}

	rel, err := h.service.RecordRelationship(req.Subject, req.Object, req.RelationshipType, req.Strength)
	if err != nil {
		switch {
		case errors.Is(err, knowledge.ErrEmptyEntity):
			response.Error(c, http.StatusBadRequest, 400012, "subject 和 object 不能为空")
		case errors.Is(err, knowledge.ErrInvalidStrength):
			response.Error(c, http.StatusBadRequest, 400013, "strength 必须在 [0,1] 区间内")
		default:
			response.ErrorWithDetail(c, http.StatusInternalServerError, 400014, "记录关系失败", err.Error())
		}
		return
	}

	response.Success(c, rel)
}

// GetRelationships 查询实体关系
// @Summary 查询某实体参与的关系边
// @Tags 模式图谱
// @Produce json
// @Param entity query string true "实体标识"
// @Param types query string false "关系类型，逗号分隔"
// @Param min_strength query number false "强度下限"
// @Success 200 {object} response.Response{data=[]knowledge.Relationship}
// @Failure 400 {object} response.ErrorResponse
// @Router /relationships [get]
func (h *KnowledgeHandler) GetRelationships(c *gin.Context) {
	entity := c.Query("entity")
	if entity == "" {
		response.Error(c, http.StatusBadRequest, 400015, "entity 参数不能为空")
		return
	}

	var types []string
	if raw := c.Query("types"); raw != "" {
		types = strings.Split(raw, ",")
	}
	minStrength, _ := strconv.ParseFloat(c.DefaultQuery("min_strength", "0"), 64)

	rels, err := h.service.GetRelationships(entity, types, minStrength)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, 400016, "查询失败", err.Error())
		return
	}

	response.Success(c, rels)
}

// RunDecay 立即执行一次衰减清扫
// @Summary 手动触发置信度衰减清扫
// @Tags 模式图谱
// @Produce json
// @Success 200 {object} response.Response{data=knowledge.SweepResult}
// @Failure 500 {object} response.ErrorResponse
// @Router /maintenance/decay [post]
func (h *KnowledgeHandler) RunDecay(c *gin.Context) {
	result, err := h.service.ApplyDecay()
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, 400017, "衰减清扫失败", err.Error())
		return
	}

	response.Success(c, result)
}
