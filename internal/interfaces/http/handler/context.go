package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	appContext "github.com/memtier/backend/internal/application/contextengine"
	"github.com/memtier/backend/internal/domain/contextengine"
	"github.com/memtier/backend/internal/interfaces/http/response"
)

// ContextHandler 上下文编排处理器
type ContextHandler struct {
	orchestrator *appContext.Orchestrator
}

// NewContextHandler 创建上下文编排处理器
func NewContextHandler(orchestrator *appContext.Orchestrator) *ContextHandler {
	return &ContextHandler{orchestrator: orchestrator}
}

// Build 构建上下文组合
// @Summary 按请求构建跨层上下文组合
// @Tags 上下文
// @Accept json
// @Produce json
// @Param body body contextengine.Request true "构建请求"
// @Success 200 {object} response.Response{data=contextengine.Bundle}
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /context [post]
func (h *ContextHandler) Build(c *gin.Context) {
	var req contextengine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 200001, "参数错误")
		return
	}

	bundle, err := h.orchestrator.BuildContext(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, contextengine.ErrEmptyRequest):
			response.Error(c, http.StatusBadRequest, 200002, "user_request 不能为空")
		case errors.Is(err, contextengine.ErrInvalidBudget):
			response.Error(c, http.StatusBadRequest, 200003, "token 预算必须为正数")
		default:
			response.ErrorWithDetail(c, http.StatusInternalServerError, 200004, "上下文构建失败", err.Error())
		}
		return
	}

	response.Success(c, bundle)
}
