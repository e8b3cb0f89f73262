package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/interfaces/http/response"
)

// MemoryHandler Tier 1 工作记忆处理器
type MemoryHandler struct {
	service *workingmem.Service
}

// NewMemoryHandler 创建工作记忆处理器
func NewMemoryHandler(service *workingmem.Service) *MemoryHandler {
	return &MemoryHandler{service: service}
}

// AppendTurnRequest 追加轮次请求体
type AppendTurnRequest struct {
	ConversationID string   `json:"conversation_id"`
	Role           string   `json:"role" binding:"required"`
	Content        string   `json:"content" binding:"required"`
	Entities       []string `json:"entities"`
}

// AppendTurn 追加一轮对话
// @Summary 向工作记忆追加一轮对话
// @Tags 工作记忆
// @Accept json
// @Produce json
// @Param body body AppendTurnRequest true "轮次内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /memory/turns [post]
func (h *MemoryHandler) AppendTurn(c *gin.Context) {
	var req AppendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 300001, "参数错误")
		return
	}

	turnID, err := h.service.Append(&conversation.Turn{
		ConversationID: req.ConversationID,
		Role:           conversation.Role(req.Role),
		Content:        req.Content,
		Entities:       req.Entities,
	})
	if err != nil {
		switch {
		case errors.Is(err, conversation.ErrEmptyContent):
			response.Error(c, http.StatusBadRequest, 300002, "轮次内容不能为空")
		case errors.Is(err, conversation.ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, 300003, "role 必须为 user 或 assistant")
		default:
			response.ErrorWithDetail(c, http.StatusInternalServerError, 300004, "追加轮次失败", err.Error())
		}
		return
	}

	response.Success(c, gin.H{"turn_id": turnID})
}

// Recent 查询最近轮次
// @Summary 按时间倒序查询最近的轮次
// @Tags 工作记忆
// @Produce json
// @Param limit query int false "返回条数，默认 20"
// @Success 200 {object} response.Response{data=[]conversation.Turn}
// @Failure 500 {object} response.ErrorResponse
// @Router /memory/recent [get]
func (h *MemoryHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	turns, err := h.service.Recent(limit)
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, 300005, "查询失败", err.Error())
		return
	}

	response.Success(c, turns)
}

// Search 按关键词与过滤条件搜索轮次
// @Summary 搜索工作记忆轮次
// @Tags 工作记忆
// @Produce json
// @Param q query string false "关键词"
// @Param conversation_id query string false "限定对话"
// @Param role query string false "限定角色"
// @Param entity query string false "限定实体"
// @Param limit query int false "返回条数，默认 20"
// @Success 200 {object} response.Response{data=[]conversation.Turn}
// @Failure 500 {object} response.ErrorResponse
// @Router /memory/search [get]
func (h *MemoryHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	turns, err := h.service.Search(c.Query("q"), conversation.SearchFilter{
		ConversationID: c.Query("conversation_id"),
		Role:           conversation.Role(c.Query("role")),
		Entity:         c.Query("entity"),
		Limit:          limit,
	})
	if err != nil {
		response.ErrorWithDetail(c, http.StatusInternalServerError, 300006, "搜索失败", err.Error())
		return
	}

	response.Success(c, turns)
}

// GetContext 获取对话上下文
// @Summary 获取指定对话的最近轮次与关联实体
// @Tags 工作记忆
// @Produce json
// @Param id path string true "对话 ID，active 表示当前活跃对话"
// @Success 200 {object} response.Response{data=conversation.ConversationContext}
// @Failure 404 {object} response.ErrorResponse
// @Router /memory/conversations/{id}/context [get]
func (h *MemoryHandler) GetContext(c *gin.Context) {
	conversationID := c.Param("id")
	if conversationID == "active" {
		conversationID = ""
	}

	ctx, err := h.service.GetContext(conversationID)
	if err != nil {
		if errors.Is(err, conversation.ErrConversationNotFound) {
			response.Error(c, http.StatusNotFound, 300007, "对话不存在")
			return
		}
		response.ErrorWithDetail(c, http.StatusInternalServerError, 300008, "查询失败", err.Error())
		return
	}

	response.Success(c, ctx)
}

// LinkPatternRequest 轮次关联模式请求体
type LinkPatternRequest struct {
	PatternID string `json:"pattern_id" binding:"required"`
}

// LinkPattern 为轮次关联 Tier 2 模式
// @Summary 记录某轮对话应用了哪个模式
// @Tags 工作记忆
// @Accept json
// @Produce json
// @Param id path string true "轮次 ID"
// @Param body body LinkPatternRequest true "模式 ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /memory/turns/{id}/patterns [post]
func (h *MemoryHandler) LinkPattern(c *gin.Context) {
	var req LinkPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 300009, "参数错误")
		return
	}

	if err := h.service.LinkPattern(c.Param("id"), req.PatternID); err != nil {
		if errors.Is(err, conversation.ErrTurnNotFound) {
			response.Error(c, http.StatusNotFound, 300010, "轮次不存在")
			return
		}
		response.ErrorWithDetail(c, http.StatusInternalServerError, 300011, "关联失败", err.Error())
		return
	}

	response.Success(c, nil)
}
