package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Me(c *gin.Context)
	SetBanned(c *gin.Context)
}

type handler struct {
	service Service
	logger  *zap.SugaredLogger
}

func NewHandler(service Service, logger *zap.Logger) Handler {
	return &handler{
		service: service,
		logger:  logger.Sugar(),
	}
}

// @Summary Register
// @Description Create an account and return an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /api/auth/register [post]
func (h *handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	resp, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/auth/login [post]
func (h *handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Current user
// @Tags User
// @Security BearerAuth
// @Produce json
// @Success 200 {object} User
// @Failure 401 {object} apperr.ErrorResponse
// @Router /api/users/me [get]
func (h *handler) Me(c *gin.Context) {
	user, err := h.service.GetByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// @Summary Ban or unban a user
// @Description Administrators only. Banning closes the user's realtime connections
// @Tags User
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param request body BanRequest true "Ban"
// @Success 200 {object} User
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/admin/users/{id}/ban [patch]
func (h *handler) SetBanned(c *gin.Context) {
	targetID, err := middleware.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req BanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	user, err := h.service.SetBanned(c.Request.Context(), middleware.UserID(c), targetID, *req.Banned)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
