package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	appKnowledge "github.com/memtier/backend/internal/application/knowledge"
	"github.com/memtier/backend/internal/domain/knowledge"
	"github.com/memtier/backend/internal/infrastructure/config"
	"github.com/memtier/backend/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupKnowledgeRouter 在内存库上组装模式图谱路由
func setupKnowledgeRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := storage.OpenDBAtPath(":memory:")
	require.NoError(t, err)
	require.NoError(t, storage.InitSchema(db))
	t.Cleanup(func() { db.Close() })

	service := appKnowledge.NewService(
		storage.NewPatternRepository(db),
		storage.NewRelationshipRepository(db),
		&config.KnowledgeConfig{
			DecayRate:         0.05,
			DecayIntervalDays: 30,
			ConfidenceFloor:   0.3,
			BoostAmount:       0.05,
		},
		nil,
	)
	handler := NewKnowledgeHandler(service)

	router := gin.New()
	api := router.Group("/api/v1")
	{
		api.POST("/patterns", handler.CreatePattern)
		api.GET("/patterns/search", handler.SearchPatterns)
		api.GET("/patterns/:id", handler.GetPattern)
		api.POST("/patterns/:id/boost", handler.Boost)
		api.POST("/relationships", handler.CreateRelationship)
		api.GET("/relationships", handler.GetRelationships)
		api.POST("/maintenance/decay", handler.RunDecay)
	}

	return router
}

// createPattern 通过 HTTP 创建模式并返回 ID
func createPattern(t *testing.T, router *gin.Engine, title string, confidence float64) string {
	t.Helper()

	body, _ := json.Marshal(map[string]interface{}{
		"title":      title,
		"category":   "error_handling",
		"confidence": confidence,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *knowledge.Pattern `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotEmpty(t, response.Data.ID)
	return response.Data.ID
}

// TestKnowledgeHandler_CreateAndGetPattern 测试模式创建与查询
func TestKnowledgeHandler_CreateAndGetPattern(t *testing.T) {
	router := setupKnowledgeRouter(t)

	id := createPattern(t, router, "retry with backoff", 0.8)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patterns/"+id, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *knowledge.Pattern `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "retry with backoff", response.Data.Title)
	assert.InDelta(t, 0.8, response.Data.Confidence, 1e-9)
}

// TestKnowledgeHandler_CreatePatternValidation 测试非法输入返回 400
func TestKnowledgeHandler_CreatePatternValidation(t *testing.T) {
	router := setupKnowledgeRouter(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"缺少标题", map[string]interface{}{"confidence": 0.5}},
		{"置信度越界", map[string]interface{}{"title": "x", "confidence": 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// TestKnowledgeHandler_Boost 测试置信度提升
func TestKnowledgeHandler_Boost(t *testing.T) {
	router := setupKnowledgeRouter(t)

	id := createPattern(t, router, "use context timeouts", 0.5)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns/"+id+"/boost", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *knowledge.Pattern `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.InDelta(t, 0.55, response.Data.Confidence, 1e-9)
	assert.Equal(t, 1, response.Data.UsageCount)
}

// TestKnowledgeHandler_BoostNotFound 测试提升不存在的模式返回 404
func TestKnowledgeHandler_BoostNotFound(t *testing.T) {
	router := setupKnowledgeRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns/no-such-id/boost", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestKnowledgeHandler_Relationships 测试关系记录与查询
func TestKnowledgeHandler_Relationships(t *testing.T) {
	router := setupKnowledgeRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"subject":           "internal/api/handler.go",
		"object":            "internal/api/middleware.go",
		"relationship_type": "often_modified_with",
		"strength":          0.9,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/relationships", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/relationships?entity=internal/api/handler.go", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data []*knowledge.Relationship `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, "often_modified_with", response.Data[0].RelationshipType)

	// 缺少 entity 参数返回 400
	req = httptest.NewRequest(http.MethodGet, "/api/v1/relationships", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestKnowledgeHandler_RunDecay 测试手动衰减清扫
func TestKnowledgeHandler_RunDecay(t *testing.T) {
	router := setupKnowledgeRouter(t)

	createPattern(t, router, "fresh pattern", 0.9)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/decay", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data *knowledge.SweepResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.NotNil(t, response.Data)
	// 刚写入的模式不足一个衰减区间，不应被衰减
	assert.Equal(t, 0, response.Data.DecayedCount)
	assert.Equal(t, 0, response.Data.PrunedCount)
}
