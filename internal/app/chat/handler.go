package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	SendMessage(c *gin.Context)
	ListMessages(c *gin.Context)
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

func (h *handler) target(c *gin.Context) (access.EntityKind, uint64, error) {
	kind, ok := access.ParseEntityKind(c.Param("kind"))
	if !ok {
		return "", 0, apperr.Validation("invalid chat room", map[string]string{"kind": "must be board or team"})
	}
	id, err := middleware.ParamID(c, "id")
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

// @Summary Send chat message
// @Tags Chat
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param kind path string true "board or team"
// @Param id path int true "Entity ID"
// @Param request body SendRequest true "Message"
// @Success 201 {object} MessageDTO
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/chat/{kind}/{id}/messages [post]
func (h *handler) SendMessage(c *gin.Context) {
	kind, id, err := h.target(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), middleware.UserID(c), kind, id, req.Content)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// @Summary Chat history
// @Description Messages oldest first. Pass before to page backwards.
// @Tags Chat
// @Security BearerAuth
// @Produce json
// @Param kind path string true "board or team"
// @Param id path int true "Entity ID"
// @Param before query int false "Only messages with a smaller id"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {array} MessageDTO
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/chat/{kind}/{id}/messages [get]
func (h *handler) ListMessages(c *gin.Context) {
	kind, id, err := h.target(c)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}

	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	msgs, err := h.service.History(c.Request.Context(), middleware.UserID(c), kind, id, q.Before, q.Limit)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
