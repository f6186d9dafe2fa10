package achievement

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	List(c *gin.Context)
	Mine(c *gin.Context)
}

type handler struct {
	service Service
	logger  *zap.SugaredLogger
}

func NewHandler(service Service, logger *zap.Logger) Handler {
	return &handler{service: service, logger: logger.Sugar()}
}

// @Summary Achievement catalog
// @Tags Achievement
// @Security BearerAuth
// @Produce json
// @Success 200 {array} Achievement
// @Router /api/achievements [get]
func (h *handler) List(c *gin.Context) {
	out, err := h.service.List(c.Request.Context())
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary My achievements
// @Tags Achievement
// @Security BearerAuth
// @Produce json
// @Success 200 {array} UserProgress
// @Router /api/users/me/achievements [get]
func (h *handler) Mine(c *gin.Context) {
	out, err := h.service.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
