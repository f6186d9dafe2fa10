package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

	Respond(c, zap.NewNop().Sugar(), err)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespond_MapsKindsToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Forbidden("nope"), http.StatusForbidden},
		{Unauthorized("who"), http.StatusUnauthorized},
		{NotFound("board"), http.StatusNotFound},
		{Validation("bad", map[string]string{"title": "is required"}), http.StatusBadRequest},
		{ErrInvitationNotFound, http.StatusNotFound},
		{ErrInvitationAccepted, http.StatusConflict},
		{ErrInvitationExpired, http.StatusGone},
		{fmt.Errorf("wrapped: %w", Conflict("dup")), http.StatusConflict},
	}
	for _, tc := range cases {
		w, body := respond(t, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		assert.Equal(t, tc.status, body.Status)
	}
}

func TestRespond_HidesInternalDetail(t *testing.T) {
	w, body := respond(t, errors.New("pq: connection refused to 10.0.0.3"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestRespond_IncludesFieldErrors(t *testing.T) {
	_, body := respond(t, Validation("validation failed", map[string]string{"title": "is required"}))
	assert.Equal(t, map[string]string{"title": "is required"}, body.Errors)
}

func TestErrorIs_MatchesByKind(t *testing.T) {
	err := fmt.Errorf("column: %w", Forbidden("role viewer not allowed"))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestFromBinding_FieldErrors(t *testing.T) {
	var req struct {
		Title string `json:"title" binding:"required"`
		Order int    `json:"order" binding:"min=0"`
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"order":-1}`))
	c.Request.Header.Set("Content-Type", "application/json")

	err := c.ShouldBindJSON(&req)
	require.Error(t, err)

	ae := FromBinding(err)
	assert.Equal(t, KindValidation, ae.Kind)
	assert.Equal(t, "is required", ae.Fields["title"])
	assert.Equal(t, "must be at least 0", ae.Fields["order"])
}
