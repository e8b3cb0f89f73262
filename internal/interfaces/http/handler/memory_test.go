package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/memtier/backend/internal/application/workingmem"
	"github.com/memtier/backend/internal/domain/conversation"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupMemoryRouter 在内存库上组装工作记忆路由
func setupMemoryRouter(t *testing.T) (*gin.Engine, *workingmem.Service) {
	t.Helper()

	db, err := storage.OpenDBAtPath(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.InitSchema(db))
	t.Cleanup(func() { db.Close() })

	service := workingmem.NewService(storage.NewConversationRepository(db), &config.WorkingMemConfig{
		MaxConversations: 10,
		ContextTurns:     10,
		RecencyHalfLife:  6 * time.Hour,
	})
	handler := NewMemoryHandler(service)

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.POST("/memory/turns", handler.AppendTurn)
		api.GET("/memory/recent", handler.Recent)
		api.GET("/memory/search", handler.Search)
		api.GET("/memory/conversations/:id/context", handler.GetContext)
	}

	return router, service
}

// TestMemoryHandler_AppendTurn 测试追加轮次
func TestMemoryHandler_AppendTurn(t *testing.T) {
	router, _ := setupMemoryRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"role":    "user",
		"content": "refactor the retry logic in db.go",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "响应应包含 data 字段")
	assert.NotEmpty(t, data["turn_id"])
}

// TestMemoryHandler_AppendTurnInvalidRole 测试非法角色返回 400
func TestMemoryHandler_AppendTurnInvalidRole(t *testing.T) {
	router, _ := setupMemoryRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"role":    "system",
		"content": "not allowed",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/memory/turns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestMemoryHandler_SearchAndRecent 测试搜索与最近轮次
func TestMemoryHandler_SearchAndRecent(t *testing.T) {
	router, service := setupMemoryRouter(t)

	_, err := service.Append(&conversation.Turn{
		ConversationID: "conv-1",
		Role:           conversation.RoleUser,
		Content:        "database connection pooling",
	})
	require.NoError(t, err)
	_, err = service.Append(&conversation.Turn{
		ConversationID: "conv-1",
		Role:           conversation.RoleAssistant,
		Content:        "use a bounded pool with health checks",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/search?q=database&role=user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []*conversation.Turn `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, conversation.RoleUser, response.Data[0].Role)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/memory/recent?limit=5", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Data, 2)
}

// TestMemoryHandler_GetContextNotFound 测试不存在的对话返回 404
func TestMemoryHandler_GetContextNotFound(t *testing.T) {
	router, _ := setupMemoryRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/conversations/no-such-conv/context", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestMemoryHandler_GetContextActive 测试 active 别名指向活跃对话
func TestMemoryHandler_GetContextActive(t *testing.T) {
	router, service := setupMemoryRouter(t)

	_, err := service.Append(&conversation.Turn{
		Role:    conversation.RoleUser,
		Content: "current work item",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/memory/conversations/active/context", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *conversation.ConversationContext `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Data)
	assert.Len(t, response.Data.PriorTurns, 1)
}
