package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/interfaces/http/response"
)

// SignalsHandler Tier 3 仓库信号处理器
type SignalsHandler struct {
	service *signals.Service
}

// NewSignalsHandler 创建信号处理器
func NewSignalsHandler(service *signals.Service) *SignalsHandler {
	return &SignalsHandler{service: service}
}

// signalKey 信号 key 可能是带斜杠的文件路径，路由用通配符捕获后去掉前导斜杠
func signalKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// ReportSignalRequest 上报信号请求体
type ReportSignalRequest struct {
	Payload map[string]interface{} `json:"payload" binding:"required"`
	// TTLSeconds 0 表示使用配置默认 TTL
	TTLSeconds int64 `json:"ttl_seconds"`
}

// Report 上报信号快照
// @Summary 外部采集进程写入一条信号快照
// @Tags 仓库信号
// @Accept json
// @Produce json
// @Param key path string true "信号 key，文件路径或 global"
// @Param body body ReportSignalRequest true "指标负载"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /signals/{key} [put]
func (h *SignalsHandler) Report(c *gin.Context) {
	key := signalKey(c)
	if key == "" {
		response.Error(c, http.StatusBadRequest, 500001, "信号 key 不能为空")
		return
	}

	var req ReportSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 500002, "参数错误")
		return
	}

	h.service.Report(key, req.Payload, req.TTLSeconds)
	response.Success(c, gin.H{"key": key})
}

// Get 查询信号快照
// @Summary 查询一条新鲜的信号快照，过期按未命中处理
// @Tags 仓库信号
// @Produce json
// @Param key path string true "信号 key"
// @Success 200 {object} response.Response{data=signal.Snapshot}
// @Failure 404 {object} response.ErrorResponse
// @Router /signals/{key} [get]
func (h *SignalsHandler) Get(c *gin.Context) {
	snapshot, ok := h.service.Get(signalKey(c))
	if !ok {
		response.Error(c, http.StatusNotFound, 500003, "信号不存在或已过期")
		return
	}

	response.Success(c, snapshot)
}

// Invalidate 主动失效信号快照
// @Summary 失效一条信号快照
// @Tags 仓库信号
// @Produce json
// @Param key path string true "信号 key"
// @Success 200 {object} response.Response
// @Router /signals/{key} [delete]
func (h *SignalsHandler) Invalidate(c *gin.Context) {
	key := signalKey(c)
	h.service.Invalidate(key)
	response.Success(c, gin.H{"key": key})
}

// List 列出全部新鲜快照
// @Summary 列出当前所有未过期的信号快照
// @Tags 仓库信号
// @Produce json
// @Success 200 {object} response.Response{data=[]signal.Snapshot}
// @Router /signals [get]
func (h *SignalsHandler) List(c *gin.Context) {
	response.Success(c, h.service.Snapshots())
}
