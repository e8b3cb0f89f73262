package handler

import (
	"github.com/gin-gonic/gin"
	appContext "github.com/memtier/backend/internal/application/contextengine"
	"github.com/memtier/backend/internal/interfaces/http/response"
)

// QualityHandler 质量监控处理器
type QualityHandler struct {
	monitor *appContext.Monitor
}

// NewQualityHandler 创建质量监控处理器
func NewQualityHandler(monitor *appContext.Monitor) *QualityHandler {
	return &QualityHandler{monitor: monitor}
}

// Report 三层健康度报告
// @Summary 评估并返回三层记忆的健康度报告
// @Tags 质量监控
// @Produce json
// @Success 200 {object} response.Response{data=contextengine.QualityReport}
// @Router /quality [get]
func (h *QualityHandler) Report(c *gin.Context) {
	response.Success(c, h.monitor.AssessAll())
}
