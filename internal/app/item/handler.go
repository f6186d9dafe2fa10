package item

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
	"taskboard/internal/middleware"
)

type Handler interface {
	CreateItem(c *gin.Context)
	ListItems(c *gin.Context)
	GetItem(c *gin.Context)
	UpdateItem(c *gin.Context)
	DeleteItem(c *gin.Context)
	MoveItem(c *gin.Context)
	CreateSubtask(c *gin.Context)
	UpdateSubtask(c *gin.Context)
	CreateComment(c *gin.Context)
	ListComments(c *gin.Context)
	CreateDependency(c *gin.Context)
	DeleteDependency(c *gin.Context)
	UploadAttachment(c *gin.Context)
	DeleteAttachment(c *gin.Context)
}

type handler struct {
	service Service
	logger  *zap.SugaredLogger
}

func NewHandler(service Service, logger *zap.Logger) Handler {
	return &handler{service: service, logger: logger.Sugar()}
}

func (h *handler) fail(c *gin.Context, err error) {
	apperr.Respond(c, h.logger, err)
}

// bind parses the named path ids and, when dst is non-nil, the JSON body.
func (h *handler) bind(c *gin.Context, dst interface{}, names ...string) ([]uint64, bool) {
	ids := make([]uint64, 0, len(names))
	for _, name := range names {
		id, err := middleware.ParamID(c, name)
		if err != nil {
			h.fail(c, err)
			return nil, false
		}
		ids = append(ids, id)
	}
	if dst != nil {
		if err := c.ShouldBindJSON(dst); err != nil {
			h.fail(c, apperr.FromBinding(err))
			return nil, false
		}
	}
	return ids, true
}

// @Summary Create item
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param boardId path int true "Board ID"
// @Param columnId path int true "Column ID"
// @Param request body CreateItemRequest true "Item"
// @Success 201 {object} Item
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/columns/{boardId}/{columnId}/items [post]
func (h *handler) CreateItem(c *gin.Context) {
	var req CreateItemRequest
	ids, ok := h.bind(c, &req, "boardId", "columnId")
	if !ok {
		return
	}
	item, err := h.service.CreateItem(c.Request.Context(), middleware.UserID(c), ids[0], ids[1], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// @Summary List board items
// @Tags Item
// @Security BearerAuth
// @Produce json
// @Param boardId path int true "Board ID"
// @Success 200 {array} Item
// @Router /api/boards/{boardId}/items [get]
func (h *handler) ListItems(c *gin.Context) {
	ids, ok := h.bind(c, nil, "boardId")
	if !ok {
		return
	}
	items, err := h.service.ListItems(c.Request.Context(), middleware.UserID(c), ids[0])
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// @Summary Get item
// @Tags Item
// @Security BearerAuth
// @Produce json
// @Param itemId path int true "Item ID"
// @Success 200 {object} ItemDetail
// @Failure 404 {object} apperr.ErrorResponse
// @Router /api/items/{itemId} [get]
func (h *handler) GetItem(c *gin.Context) {
	ids, ok := h.bind(c, nil, "itemId")
	if !ok {
		return
	}
	detail, err := h.service.GetItem(c.Request.Context(), middleware.UserID(c), ids[0])
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// @Summary Update item
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param itemId path int true "Item ID"
// @Param request body UpdateItemRequest true "Item"
// @Success 200 {object} Item
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/items/{itemId} [put]
func (h *handler) UpdateItem(c *gin.Context) {
	var req UpdateItemRequest
	ids, ok := h.bind(c, &req, "itemId")
	if !ok {
		return
	}
	item, err := h.service.UpdateItem(c.Request.Context(), middleware.UserID(c), ids[0], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// @Summary Delete item
// @Tags Item
// @Security BearerAuth
// @Param itemId path int true "Item ID"
// @Success 204
// @Failure 403 {object} apperr.ErrorResponse
// @Router /api/items/{itemId} [delete]
func (h *handler) DeleteItem(c *gin.Context) {
	ids, ok := h.bind(c, nil, "itemId")
	if !ok {
		return
	}
	if err := h.service.DeleteItem(c.Request.Context(), middleware.UserID(c), ids[0]); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Move item
// @Description Moves an item between columns of a board and broadcasts ItemMoved
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body MoveItemRequest true "Move"
// @Success 200 {object} ItemMoved
// @Failure 403 {object} apperr.ErrorResponse
// @Failure 409 {object} apperr.ErrorResponse
// @Router /api/items/move [post]
func (h *handler) MoveItem(c *gin.Context) {
	var req MoveItemRequest
	if _, ok := h.bind(c, &req); !ok {
		return
	}
	moved, err := h.service.MoveItem(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, moved)
}

// @Summary Add a subtask
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param itemId path int true "Item ID"
// @Param request body CreateSubtaskRequest true "Subtask"
// @Success 201 {object} Subtask
// @Router /api/items/{itemId}/subtasks [post]
func (h *handler) CreateSubtask(c *gin.Context) {
	var req CreateSubtaskRequest
	ids, ok := h.bind(c, &req, "itemId")
	if !ok {
		return
	}
	subtask, err := h.service.CreateSubtask(c.Request.Context(), middleware.UserID(c), ids[0], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, subtask)
}

// @Summary Update a subtask
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param subtaskId path int true "Subtask ID"
// @Param request body UpdateSubtaskRequest true "Subtask"
// @Success 200 {object} Subtask
// @Router /api/subtasks/{subtaskId} [patch]
func (h *handler) UpdateSubtask(c *gin.Context) {
	var req UpdateSubtaskRequest
	ids, ok := h.bind(c, &req, "subtaskId")
	if !ok {
		return
	}
	subtask, err := h.service.UpdateSubtask(c.Request.Context(), middleware.UserID(c), ids[0], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, subtask)
}

// @Summary Comment on an item
// @Description Any board member may comment, viewers included
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param itemId path int true "Item ID"
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} Comment
// @Router /api/items/{itemId}/comments [post]
func (h *handler) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	ids, ok := h.bind(c, &req, "itemId")
	if !ok {
		return
	}
	comment, err := h.service.CreateComment(c.Request.Context(), middleware.UserID(c), ids[0], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// @Summary List comments
// @Tags Item
// @Security BearerAuth
// @Produce json
// @Param itemId path int true "Item ID"
// @Success 200 {array} Comment
// @Router /api/items/{itemId}/comments [get]
func (h *handler) ListComments(c *gin.Context) {
	ids, ok := h.bind(c, nil, "itemId")
	if !ok {
		return
	}
	comments, err := h.service.ListComments(c.Request.Context(), middleware.UserID(c), ids[0])
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// @Summary Add a dependency
// @Tags Item
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param itemId path int true "Item ID"
// @Param request body CreateDependencyRequest true "Dependency"
// @Success 201 {object} Dependency
// @Failure 400 {object} apperr.ErrorResponse
// @Router /api/items/{itemId}/dependencies [post]
func (h *handler) CreateDependency(c *gin.Context) {
	var req CreateDependencyRequest
	ids, ok := h.bind(c, &req, "itemId")
	if !ok {
		return
	}
	dep, err := h.service.CreateDependency(c.Request.Context(), middleware.UserID(c), ids[0], req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dep)
}

// @Summary Remove a dependency
// @Tags Item
// @Security BearerAuth
// @Param dependencyId path int true "Dependency ID"
// @Success 204
// @Router /api/dependencies/{dependencyId} [delete]
func (h *handler) DeleteDependency(c *gin.Context) {
	ids, ok := h.bind(c, nil, "dependencyId")
	if !ok {
		return
	}
	if err := h.service.DeleteDependency(c.Request.Context(), middleware.UserID(c), ids[0]); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Upload an attachment
// @Tags Item
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param itemId path int true "Item ID"
// @Param file formData file true "File"
// @Success 201 {object} Attachment
// @Failure 400 {object} apperr.ErrorResponse
// @Router /api/items/{itemId}/attachments [post]
func (h *handler) UploadAttachment(c *gin.Context) {
	ids, ok := h.bind(c, nil, "itemId")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.fail(c, apperr.Validation("file is required", map[string]string{"file": "file is required"}))
		return
	}
	src, err := file.Open()
	if err != nil {
		h.fail(c, apperr.Internal(err))
		return
	}
	defer src.Close()

	attachment, err := h.service.AddAttachment(c.Request.Context(), middleware.UserID(c), ids[0], Upload{
		FileName: file.Filename,
		Size:     file.Size,
		Body:     src,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

// @Summary Delete an attachment
// @Tags Item
// @Security BearerAuth
// @Param attachmentId path int true "Attachment ID"
// @Success 204
// @Router /api/attachments/{attachmentId} [delete]
func (h *handler) DeleteAttachment(c *gin.Context) {
	ids, ok := h.bind(c, nil, "attachmentId")
	if !ok {
		return
	}
	if err := h.service.DeleteAttachment(c.Request.Context(), middleware.UserID(c), ids[0]); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
