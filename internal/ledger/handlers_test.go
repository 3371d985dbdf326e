package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymentmate/paymentmate/internal/scoring"
)

func setupRouter(t *testing.T, l *Ledger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	handler := NewHandler(l)
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	handler.RegisterAdminRoutes(api)
	return router
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type historyResponse struct {
	Transactions  []HistoryItem `json:"transactions"`
	TotalCount    int           `json:"total_count"`
	ReturnedCount int           `json:"returned_count"`
	HasMore       bool          `json:"has_more"`
	NextCursor    string        `json:"next_cursor"`
}

func TestGetHistoryDefaults(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 25; i++ {
		require.NoError(t, l.Append(context.Background(), newTxn(i, scoring.DecisionAllow)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "GET", "/api/v1/data/history")
	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 25, resp.TotalCount)
	assert.Equal(t, DefaultQueryLimit, resp.ReturnedCount)
	require.Len(t, resp.Transactions, DefaultQueryLimit)
	assert.True(t, resp.HasMore)
	assert.NotEmpty(t, resp.NextCursor)

	// Newest first
	assert.Equal(t, "txn_000024", resp.Transactions[0].TransactionID)
}

func TestGetHistoryConfiguredDefaultLimit(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 8; i++ {
		require.NoError(t, l.Append(context.Background(), newTxn(i, scoring.DecisionAllow)))
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(l).WithDefaultLimit(5)
	handler.RegisterRoutes(router.Group("/api/v1"))

	w := doRequest(router, "GET", "/api/v1/data/history")
	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Transactions, 5)
	assert.Equal(t, 5, resp.ReturnedCount)
	assert.True(t, resp.HasMore)

	// An explicit limit parameter still wins over the configured default.
	w = doRequest(router, "GET", "/api/v1/data/history?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Transactions, 2)
}

func TestWithDefaultLimitRejectsOutOfRange(t *testing.T) {
	l := New(NewMemoryStore(10))

	for _, bad := range []int{0, -5, MaxQueryLimit + 1} {
		h := NewHandler(l).WithDefaultLimit(bad)
		assert.Equal(t, DefaultQueryLimit, h.defaultLimit, "limit %d should keep the default", bad)
	}
}

func TestGetHistoryExplicitLimit(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 10; i++ {
		require.NoError(t, l.Append(context.Background(), newTxn(i, scoring.DecisionAllow)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "GET", "/api/v1/data/history?limit=3")
	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.ReturnedCount)
	assert.Equal(t, 10, resp.TotalCount)
}

func TestGetHistoryLimitValidation(t *testing.T) {
	router := setupRouter(t, New(NewMemoryStore(10)))

	for _, q := range []string{"limit=0", "limit=-1", "limit=101", "limit=abc"} {
		w := doRequest(router, "GET", "/api/v1/data/history?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Contains(t, w.Body.String(), "invalid_limit", q)
	}
}

func TestGetHistoryDecisionFilter(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 12; i++ {
		decision := scoring.DecisionAllow
		if i%4 == 0 {
			decision = scoring.DecisionDecline
		}
		require.NoError(t, l.Append(context.Background(), newTxn(i, decision)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "GET", "/api/v1/data/history?decision=DECLINE")
	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.ReturnedCount)
	for _, item := range resp.Transactions {
		assert.Equal(t, scoring.DecisionDecline, item.Decision)
	}
}

func TestGetHistoryInvalidDecision(t *testing.T) {
	router := setupRouter(t, New(NewMemoryStore(10)))

	w := doRequest(router, "GET", "/api/v1/data/history?decision=MAYBE")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_decision")
}

func TestGetHistoryInvalidCursor(t *testing.T) {
	router := setupRouter(t, New(NewMemoryStore(10)))

	w := doRequest(router, "GET", "/api/v1/data/history?cursor=%21%21%21")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_cursor")
}

func TestGetHistoryCursorPaging(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(context.Background(), newTxn(i, scoring.DecisionAllow)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "GET", "/api/v1/data/history?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	var first historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextCursor)

	w = doRequest(router, "GET", "/api/v1/data/history?limit=2&cursor="+first.NextCursor)
	require.Equal(t, http.StatusOK, w.Code)
	var second historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.Equal(t, "txn_000002", second.Transactions[0].TransactionID)
	assert.Equal(t, "txn_000001", second.Transactions[1].TransactionID)
	assert.NotEqual(t, first.Transactions[0].TransactionID, second.Transactions[0].TransactionID)
}

func TestGetStats(t *testing.T) {
	l := New(NewMemoryStore(100))
	decisions := []scoring.Decision{
		scoring.DecisionAllow, scoring.DecisionFlag, scoring.DecisionFlag, scoring.DecisionDecline,
	}
	for i, d := range decisions {
		require.NoError(t, l.Append(context.Background(), newTxn(i, d)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "GET", "/api/v1/data/history/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Total      int            `json:"total"`
		ByDecision map[string]int `json:"by_decision"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Total)
	assert.Equal(t, 1, resp.ByDecision["ALLOW"])
	assert.Equal(t, 2, resp.ByDecision["FLAG"])
	assert.Equal(t, 1, resp.ByDecision["DECLINE"])
}

func TestClearHistoryEndpoint(t *testing.T) {
	l := New(NewMemoryStore(100))
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(context.Background(), newTxn(i, scoring.DecisionAllow)))
	}
	router := setupRouter(t, l)

	w := doRequest(router, "DELETE", "/api/v1/data/history")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cleared")

	total, _, err := l.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}
