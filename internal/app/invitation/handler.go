package invitation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	CreateBoardInvitation(c *gin.Context)
	CreateTeamInvitation(c *gin.Context)
	AcceptBoardInvitation(c *gin.Context)
	AcceptTeamInvitation(c *gin.Context)
	ListMine(c *gin.Context)
	ListForBoard(c *gin.Context)
	ListForTeam(c *gin.Context)
	Revoke(c *gin.Context)
}

type handler struct {
	service Service
	logger  *zap.SugaredLogger
}

func NewHandler(service Service, logger *zap.Logger) Handler {
	return &handler{service: service, logger: logger.Sugar()}
}

// @Summary Invite a user to a board
// @Description Board admins only
// @Tags Invitation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateBoardInvitationRequest true "Invitation"
// @Success 201 {object} Invitation
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/board-invitations [post]
func (h *handler) CreateBoardInvitation(c *gin.Context) {
	var req CreateBoardInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}
	// Unknown roles come through as RoleNone and are rejected after the
	// admin check.
	role, _ := access.ParseRole(req.Role)

	inv, err := h.service.Create(c.Request.Context(), middleware.UserID(c), access.KindBoard, req.BoardID, req.Email, role)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

// @Summary Invite a user to a team
// @Tags Invitation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateTeamInvitationRequest true "Invitation"
// @Success 201 {object} Invitation
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/team-invitations [post]
func (h *handler) CreateTeamInvitation(c *gin.Context) {
	var req CreateTeamInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}
	role, _ := access.ParseRole(req.Role)

	inv, err := h.service.Create(c.Request.Context(), middleware.UserID(c), access.KindTeam, req.TeamID, req.Email, role)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *handler) accept(c *gin.Context, kind access.EntityKind) {
	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, h.logger, apperr.FromBinding(err))
		return
	}

	membership, err := h.service.Accept(c.Request.Context(), middleware.UserID(c), kind, req.Token)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, membership)
}

// @Summary Accept a board invitation
// @Tags Invitation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AcceptRequest true "Token"
// @Success 200 {object} Membership
// @Failure 404 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Failure 410 {object} apperr.ErrorResponse
// @Router /api/board-invitations/accept [post]
func (h *handler) AcceptBoardInvitation(c *gin.Context) {
	h.accept(c, access.KindBoard)
}

// @Summary Accept a team invitation
// @Tags Invitation
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body AcceptRequest true "Token"
// @Success 200 {object} Membership
// @Router /api/team-invitations/accept [post]
func (h *handler) AcceptTeamInvitation(c *gin.Context) {
	h.accept(c, access.KindTeam)
}

// @Summary Pending invitations for the current user
// @Tags Invitation
// @Security BearerAuth
// @Produce json
// @Success 200 {array} Invitation
// @Router /api/invitations [get]
func (h *handler) ListMine(c *gin.Context) {
	invs, err := h.service.ListPending(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invs)
}

func (h *handler) listFor(c *gin.Context, kind access.EntityKind, param string) {
	entityID, err := middleware.ParamID(c, param)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	invs, err := h.service.ListForEntity(c.Request.Context(), middleware.UserID(c), kind, entityID)
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, invs)
}

// @Summary Pending invitations of a board
// @Tags Invitation
// @Security BearerAuth
// @Produce json
// @Param boardId path int true "Board ID"
// @Success 200 {array} Invitation
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId}/invitations [get]
func (h *handler) ListForBoard(c *gin.Context) {
	h.listFor(c, access.KindBoard, "boardId")
}

// @Summary Pending invitations of a team
// @Tags Invitation
// @Security BearerAuth
// @Produce json
// @Param teamId path int true "Team ID"
// @Success 200 {array} Invitation
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/teams/{teamId}/invitations [get]
func (h *handler) ListForTeam(c *gin.Context) {
	h.listFor(c, access.KindTeam, "teamId")
}

// @Summary Revoke a pending invitation
// @Tags Invitation
// @Security BearerAuth
// @Param id path int true "Invitation ID"
// @Success 204
// @Router /api/invitations/{id} [delete]
func (h *handler) Revoke(c *gin.Context) {
	id, err := middleware.ParamID(c, "id")
	if err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	if err := h.service.Revoke(c.Request.Context(), middleware.UserID(c), id); err != nil {
		apperr.Respond(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
