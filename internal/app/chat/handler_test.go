package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"taskboard/internal/middleware"
)

func TestHandler_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetUserID(c, outsider)
		c.Next()
	})
	RegisterRoutes(r.Group("/api"), NewHandler(f.service(f.repo), zap.NewNop()))

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodPost, "/api/chat/board/1/messages", `{"content":"hi"}`, http.StatusForbidden},
		{http.MethodGet, "/api/chat/board/1/messages", "", http.StatusForbidden},
		{http.MethodGet, "/api/chat/org/1/messages", "", http.StatusBadRequest},
		{http.MethodGet, "/api/chat/board/zero/messages", "", http.StatusBadRequest},
		{http.MethodGet, "/api/chat/board/1/messages?limit=500", "", http.StatusBadRequest},
		{http.MethodPost, "/api/chat/team/1/messages", `{}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code, tc.method+" "+tc.path)
	}
}
