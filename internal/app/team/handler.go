package team

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	CreateTeam(c *gin.Context)
	ListTeams(c *gin.Context)
	GetTeam(c *gin.Context)
	DeleteTeam(c *gin.Context)
	ListMembers(c *gin.Context)
	UpdateMember(c *gin.Context)
	RemoveMember(c *gin.Context)
}

type handler struct {
	service Service
	logger  *zap.SugaredLogger
}

func NewHandler(service Service, logger *zap.Logger) Handler {
	return &handler{service: service, logger: logger.Sugar()}
}

// @Summary Create team
// @Tags Team
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateTeamRequest true "Team"
// @Success 201 {object} Team
// @Router /api/teams [post]
func (h *handler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	team, err := h.service.CreateTeam(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

// @Summary List teams
// @Tags Team
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TeamListResponse
// @Router /api/teams [get]
func (h *handler) ListTeams(c *gin.Context) {
	teams, err := h.service.ListTeams(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, TeamListResponse{Teams: teams})
}

// @Summary Get team
// @Tags Team
// @Security BearerAuth
// @Produce json
// @Param teamId path int true "Team ID"
// @Success 200 {object} Team
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/teams/{teamId} [get]
func (h *handler) GetTeam(c *gin.Context) {
	teamID, err := middleware.ParamID(c, "teamId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	team, err := h.service.GetTeam(c.Request.Context(), middleware.UserID(c), teamID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// @Summary Delete team
// @Tags Team
// @Security BearerAuth
// @Param teamId path int true "Team ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/teams/{teamId} [delete]
func (h *handler) DeleteTeam(c *gin.Context) {
	teamID, err := middleware.ParamID(c, "teamId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if err := h.service.DeleteTeam(c.Request.Context(), middleware.UserID(c), teamID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List team members
// @Tags Team
// @Security BearerAuth
// @Produce json
// @Param teamId path int true "Team ID"
// @Success 200 {array} TeamMember
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/teams/{teamId}/members [get]
func (h *handler) ListMembers(c *gin.Context) {
	teamID, err := middleware.ParamID(c, "teamId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	members, err := h.service.ListMembers(c.Request.Context(), middleware.UserID(c), teamID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// @Summary Change a team member's role
// @Tags Team
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param teamId path int true "Team ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "Role"
// @Success 200 {object} TeamMember
// @Router /api/teams/{teamId}/members/{userId} [put]
func (h *handler) UpdateMember(c *gin.Context) {
	teamID, err := middleware.ParamID(c, "teamId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	targetID, err := middleware.ParamID(c, "userId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}
	role, ok := access.ParseRole(req.Role)
	if !ok {
		apperr.Respond(c, h.logger, apperr.Validation("invalid role", map[string]string{"role": "must be one of admin editor viewer"}))
		return
	}

	member, err := h.service.UpdateMemberRole(c.Request.Context(), middleware.UserID(c), teamID, targetID, role)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// @Summary Remove a team member
// @Tags Team
// @Security BearerAuth
// @Param teamId path int true "Team ID"
// @Param userId path int true "User ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/teams/{teamId}/members/{userId} [delete]
func (h *handler) RemoveMember(c *gin.Context) {
	teamID, err := middleware.ParamID(c, "teamId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	targetID, err := middleware.ParamID(c, "userId")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if err := h.service.RemoveMember(c.Request.Context(), middleware.UserID(c), teamID, targetID); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
