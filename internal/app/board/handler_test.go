package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

func newRouter(svc Service, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		middleware.SetUserID(c, userID)
		c.Next()
	})
	RegisterRoutes(api, NewHandler(svc, zap.NewNop()))
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateColumn(t *testing.T) {
	f := newFixture(t)
	board, err := f.svc.CreateBoard(context.Background(), 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	path := fmt.Sprintf("/api/boards/%d/columns", board.ID)

	t.Run("admin creates", func(t *testing.T) {
		w := doJSON(t, newRouter(f.svc, 1), http.MethodPost, path, map[string]interface{}{"title": "Todo", "order": 0})
		require.Equal(t, http.StatusCreated, w.Code)

		var column Column
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &column))
		assert.Equal(t, "Todo", column.Title)
		assert.Equal(t, board.ID, column.BoardID)
	})

	t.Run("non member is forbidden", func(t *testing.T) {
		w := doJSON(t, newRouter(f.svc, 3), http.MethodPost, path, map[string]interface{}{"title": "Nope"})
		require.Equal(t, http.StatusForbidden, w.Code)

		var resp apperr.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusForbidden, resp.Status)
	})

	t.Run("missing title", func(t *testing.T) {
		w := doJSON(t, newRouter(f.svc, 1), http.MethodPost, path, map[string]interface{}{"order": 1})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp apperr.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Errors, "title")
	})

	columns, err := f.repo.ListColumns(context.Background(), board.ID)
	require.NoError(t, err)
	assert.Len(t, columns, 1)
}

func TestHandler_InvalidIDs(t *testing.T) {
	f := newFixture(t)
	r := newRouter(f.svc, 1)

	w := doJSON(t, r, http.MethodGet, "/api/boards/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPut, "/api/boards/1/members/2", map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListBoardsAndMembers(t *testing.T) {
	f := newFixture(t)
	board, err := f.svc.CreateBoard(context.Background(), 1, CreateBoardRequest{Name: "Board"})
	require.NoError(t, err)
	f.addMember(t, board.ID, 2, access.RoleViewer)

	w := doJSON(t, newRouter(f.svc, 2), http.MethodGet, "/api/boards", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list BoardListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Boards, 1)
	assert.Equal(t, "viewer", list.Boards[0].Role)

	w = doJSON(t, newRouter(f.svc, 2), http.MethodGet, fmt.Sprintf("/api/boards/%d/members", board.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members []BoardMember
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	assert.Len(t, members, 2)

	w = doJSON(t, newRouter(f.svc, 9), http.MethodGet, fmt.Sprintf("/api/boards/%d/members", board.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
