package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/memtier/backend/internal/application/signals"
	"github.com/memtier/backend/internal/domain/signal"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/signalcache"
	"github.com/memtier/backend/internal/infrastructure/watcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSignalsRouter 组装信号路由
func setupSignalsRouter(t *testing.T) *gin.Engine {
	t.Helper()

	bus := watcher.NewEventBus()
	t.Cleanup(bus.Close)

	service := signals.NewService(signalcache.NewCache(&config.SignalsConfig{
		DefaultTTLSeconds: 3600,
		MaxEntries:        64,
	}), bus)
	handler := NewSignalsHandler(service)

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.GET("/signals", handler.List)
		api.PUT("/signals/*key", handler.Report)
		api.GET("/signals/*key", handler.Get)
		api.DELETE("/signals/*key", handler.Invalidate)
	}

	return router
}

// TestSignalsHandler_ReportAndGet 测试带斜杠的文件路径 key 全链路
func TestSignalsHandler_ReportAndGet(t *testing.T) {
	router := setupSignalsRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{"churn_score": 0.8},
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/signals/internal/db/retry.go", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/signals/internal/db/retry.go", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *signal.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Data)
	assert.Equal(t, "internal/db/retry.go", response.Data.Key)
	assert.InDelta(t, 0.8, response.Data.ChurnScore(), 1e-9)
}

// TestSignalsHandler_GetMiss 测试未命中返回 404
func TestSignalsHandler_GetMiss(t *testing.T) {
	router := setupSignalsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/global", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestSignalsHandler_InvalidateThenMiss 测试失效后按未命中处理
func TestSignalsHandler_InvalidateThenMiss(t *testing.T) {
	router := setupSignalsRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"payload": map[string]interface{}{"test_health": 1.0},
	})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/signals/global", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/signals/global", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/signals/global", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestSignalsHandler_List 测试列出全部新鲜快照
func TestSignalsHandler_List(t *testing.T) {
	router := setupSignalsRouter(t)

	for _, key := range []string{"a.go", "b.go"} {
		body, _ := json.Marshal(map[string]interface{}{
			"payload": map[string]interface{}{"churn_score": 0.1},
		})
		req := httptest.NewRequest(http.MethodPut, "/api/v1/signals/"+key, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/signals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []*signal.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Data, 2)
}
