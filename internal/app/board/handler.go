package board

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	CreateBoard(c *gin.Context)
	ListBoards(c *gin.Context)
	GetBoard(c *gin.Context)
	UpdateBoard(c *gin.Context)
	DeleteBoard(c *gin.Context)
	CreateColumn(c *gin.Context)
	UpdateColumn(c *gin.Context)
	DeleteColumn(c *gin.Context)
	ListMembers(c *gin.Context)
	UpdateMember(c *gin.Context)
	RemoveMember(c *gin.Context)
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

func (h *handler) fail(c *gin.Context, err error) {
	apperr.Respond(c, h.logger, err)
}

// @Summary Create board
// @Tags Board
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateBoardRequest true "Board"
// @Success 201 {object} Board
// @Failure 400 {object} apperr.ErrorResponse
// @Router /api/boards [post]
func (h *handler) CreateBoard(c *gin.Context) {
	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return
	}

	board, err := h.service.CreateBoard(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, board)
}

// @Summary List boards
// @Description Boards the current user is a member of, with their role
// @Tags Board
// @Security BearerAuth
// @Produce json
// @Success 200 {object} BoardListResponse
// @Router /api/boards [get]
func (h *handler) ListBoards(c *gin.Context) {
	boards, err := h.service.ListBoards(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, BoardListResponse{Boards: boards})
}

// @Summary Get board
// @Tags Board
// @Security BearerAuth
// @Produce json
// @Param boardId path int true "Board ID"
// @Success 200 {object} BoardDetail
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 404 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId} [get]
func (h *handler) GetBoard(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}

	detail, err := h.service.GetBoard(c.Request.Context(), middleware.UserID(c), boardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// @Summary Update board
// @Tags Board
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param boardId path int true "Board ID"
// @Param request body UpdateBoardRequest true "Changes"
// @Success 200 {object} Board
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId} [put]
func (h *handler) UpdateBoard(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return
	}

	board, err := h.service.UpdateBoard(c.Request.Context(), middleware.UserID(c), boardID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// @Summary Delete board
// @Tags Board
// @Security BearerAuth
// @Param boardId path int true "Board ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId} [delete]
func (h *handler) DeleteBoard(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.service.DeleteBoard(c.Request.Context(), middleware.UserID(c), boardID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Create column
// @Description Admins only
// @Tags Board
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param boardId path int true "Board ID"
// @Param request body CreateColumnRequest true "Column"
// @Success 201 {object} Column
// @Failure 400 {object} apperr.ErrorResponse
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId}/columns [post]
func (h *handler) CreateColumn(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req CreateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return
	}

	column, err := h.service.CreateColumn(c.Request.Context(), middleware.UserID(c), boardID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, column)
}

// @Summary Update column
// @Tags Board
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param boardId path int true "Board ID"
// @Param columnId path int true "Column ID"
// @Param request body UpdateColumnRequest true "Column"
// @Success 200 {object} Column
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/columns/{boardId}/{columnId} [put]
func (h *handler) UpdateColumn(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	columnID, err := middleware.ParamID(c, "columnId")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return
	}

	column, err := h.service.UpdateColumn(c.Request.Context(), middleware.UserID(c), boardID, columnID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, column)
}

// @Summary Delete column
// @Description Deletes the column with its items
// @Tags Board
// @Security BearerAuth
// @Param boardId path int true "Board ID"
// @Param columnId path int true "Column ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/columns/{boardId}/{columnId} [delete]
func (h *handler) DeleteColumn(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	columnID, err := middleware.ParamID(c, "columnId")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.service.DeleteColumn(c.Request.Context(), middleware.UserID(c), boardID, columnID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List board members
// @Tags Board
// @Security BearerAuth
// @Produce json
// @Param boardId path int true "Board ID"
// @Success 200 {array} BoardMember
// @Router /api/boards/{boardId}/members [get]
func (h *handler) ListMembers(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), middleware.UserID(c), boardID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// @Summary Change a member's role
// @Tags Board
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param boardId path int true "Board ID"
// @Param userId path int true "User ID"
// @Param request body UpdateMemberRequest true "Role"
// @Success 200 {object} BoardMember
// @Router /api/boards/{boardId}/members/{userId} [put]
func (h *handler) UpdateMember(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	targetID, err := middleware.ParamID(c, "userId")
	if err != nil {
		h.fail(c, err)
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperr.FromBinding(err))
		return
	}
	role, ok := access.ParseRole(req.Role)
	if !ok {
		h.fail(c, apperr.Validation("invalid role", map[string]string{"role": "must be one of admin editor viewer"}))
		return
	}

	member, err := h.service.UpdateMemberRole(c.Request.Context(), middleware.UserID(c), boardID, targetID, role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, member)
}

// @Summary Remove a member
// @Description Admins remove others; any member may remove themselves
// @Tags Board
// @Security BearerAuth
// @Param boardId path int true "Board ID"
// @Param userId path int true "User ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/boards/{boardId}/members/{userId} [delete]
func (h *handler) RemoveMember(c *gin.Context) {
	boardID, err := middleware.ParamID(c, "boardId")
	if err != nil {
		h.fail(c, err)
		return
	}
	targetID, err := middleware.ParamID(c, "userId")
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), middleware.UserID(c), boardID, targetID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
