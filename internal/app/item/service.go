package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/providers/minio"
	"taskboard/internal/utils"
)

const (
	EventItemCreated       = "ItemCreated"
	EventItemUpdated       = "ItemUpdated"
	EventItemDeleted       = "ItemDeleted"
	EventItemMoved         = "ItemMoved"
	EventSubtaskCreated    = "SubtaskCreated"
	EventSubtaskUpdated    = "SubtaskUpdated"
	EventCommentCreated    = "CommentCreated"
	EventDependencyCreated = "DependencyCreated"
	EventDependencyDeleted = "DependencyDeleted"
	EventAttachmentAdded   = "AttachmentAdded"
	EventAttachmentDeleted = "AttachmentDeleted"
)

const attachmentURLExpiry = 15 * time.Minute

type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
}

// ObjectStore holds attachment contents.
type ObjectStore interface {
	MaxSize() int64
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, objectName string) error
	PresignedURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
}

type Upload struct {
	FileName string
	Size     int64
	Body     io.Reader
}

var errStorageUnavailable = errors.New("object storage is not configured")

// noStore stands in when object storage could not be reached at startup.
// Uploads are rejected at Put.
type noStore struct{}

func (noStore) MaxSize() int64 { return math.MaxInt64 }

func (noStore) Put(context.Context, string, io.Reader, int64, string) error {
	return errStorageUnavailable
}

func (noStore) Remove(context.Context, string) error { return errStorageUnavailable }

func (noStore) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", errStorageUnavailable
}

type Service interface {
	CreateItem(ctx context.Context, userID, boardID, columnID uint64, req CreateItemRequest) (*Item, error)
	ListItems(ctx context.Context, userID, boardID uint64) ([]*Item, error)
	GetItem(ctx context.Context, userID, itemID uint64) (*ItemDetail, error)
	UpdateItem(ctx context.Context, userID, itemID uint64, req UpdateItemRequest) (*Item, error)
	DeleteItem(ctx context.Context, userID, itemID uint64) error
	MoveItem(ctx context.Context, userID uint64, req MoveItemRequest) (*ItemMoved, error)

	CreateSubtask(ctx context.Context, userID, itemID uint64, req CreateSubtaskRequest) (*Subtask, error)
	UpdateSubtask(ctx context.Context, userID, subtaskID uint64, req UpdateSubtaskRequest) (*Subtask, error)

	CreateComment(ctx context.Context, userID, itemID uint64, req CreateCommentRequest) (*Comment, error)
	ListComments(ctx context.Context, userID, itemID uint64) ([]*Comment, error)

	CreateDependency(ctx context.Context, userID, itemID uint64, req CreateDependencyRequest) (*Dependency, error)
	DeleteDependency(ctx context.Context, userID, dependencyID uint64) error

	AddAttachment(ctx context.Context, userID, itemID uint64, upload Upload) (*Attachment, error)
	DeleteAttachment(ctx context.Context, userID, attachmentID uint64) error
}

type service struct {
	repo     Repository
	guard    *access.Guard
	hub      Broadcaster
	store    ObjectStore
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewService(
	repo Repository,
	guard *access.Guard,
	hub Broadcaster,
	store ObjectStore,
	eventBus *utils.EventBus,
	logger *zap.Logger,
) Service {
	if store == nil {
		store = noStore{}
	}
	return &service{
		repo:     repo,
		guard:    guard,
		hub:      hub,
		store:    store,
		eventBus: eventBus,
		logger:   logger.Sugar(),
	}
}

var writers = []access.Role{access.RoleAdmin, access.RoleEditor}

func (s *service) broadcast(ctx context.Context, boardID uint64, event string, data interface{}) {
	if err := s.hub.Broadcast(ctx, access.Room(access.KindBoard, boardID), event, data); err != nil {
		s.logger.Warnw("Failed to broadcast item event", "board_id", boardID, "event", event, "error", err)
	}
}

func notFoundOr(err error, entity string) error {
	if isNotFound(err) {
		return apperr.NotFound(entity)
	}
	return apperr.Internal(err)
}

// canRead allows members of the board and anyone when the board is public.
func (s *service) canRead(ctx context.Context, userID, boardID uint64) error {
	if s.guard.Resolve(ctx, userID, boardID, access.KindBoard) != access.RoleNone {
		return nil
	}
	public, err := s.repo.BoardIsPublic(ctx, boardID)
	if err != nil && !isNotFound(err) {
		return apperr.Internal(err)
	}
	if !public {
		return apperr.Forbidden(fmt.Sprintf("no access to board %d", boardID))
	}
	return nil
}

// loadItem fetches an item and checks the caller holds one of roles on its
// board. An empty roles list means read access.
func (s *service) loadItem(ctx context.Context, userID, itemID uint64, roles ...access.Role) (*Item, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}
	if len(roles) == 0 {
		err = s.canRead(ctx, userID, item.BoardID)
	} else {
		_, err = s.guard.Require(ctx, userID, item.BoardID, access.KindBoard, roles...)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) CreateItem(ctx context.Context, userID, boardID, columnID uint64, req CreateItemRequest) (*Item, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, writers...); err != nil {
		return nil, err
	}
	columnBoard, err := s.repo.ColumnBoardID(ctx, columnID)
	if err != nil {
		return nil, notFoundOr(err, "column")
	}
	if columnBoard != boardID {
		return nil, apperr.NotFound("column")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("invalid item", map[string]string{"title": "title is required"})
	}

	item := &Item{
		BoardID:     boardID,
		ColumnID:    columnID,
		Title:       title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
		CreatedBy:   userID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create item: %w", err))
	}

	s.broadcast(ctx, boardID, EventItemCreated, item)
	s.eventBus.Publish(utils.EventItemCreated, userID, item.ID)
	return item, nil
}

func (s *service) ListItems(ctx context.Context, userID, boardID uint64) ([]*Item, error) {
	if err := s.canRead(ctx, userID, boardID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if items == nil {
		items = []*Item{}
	}
	return items, nil
}

func (s *service) GetItem(ctx context.Context, userID, itemID uint64) (*ItemDetail, error) {
	item, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	detail := &ItemDetail{Item: item}
	if detail.Subtasks, err = s.repo.ListSubtasks(ctx, itemID); err != nil {
		return nil, apperr.Internal(err)
	}
	if detail.Dependencies, err = s.repo.ListDependencies(ctx, itemID); err != nil {
		return nil, apperr.Internal(err)
	}
	if detail.Attachments, err = s.repo.ListAttachments(ctx, itemID); err != nil {
		return nil, apperr.Internal(err)
	}
	for _, a := range detail.Attachments {
		s.presign(ctx, a)
	}
	return detail, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uint64, req UpdateItemRequest) (*Item, error) {
	item, err := s.loadItem(ctx, userID, itemID, writers...)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("invalid item", map[string]string{"title": "title is required"})
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.AssigneeID != nil {
		item.AssigneeID = req.AssigneeID
	}
	if req.DueDate != nil {
		item.DueDate = req.DueDate
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to update item: %w", err))
	}
	s.broadcast(ctx, item.BoardID, EventItemUpdated, item)
	return item, nil
}

func (s *service) DeleteItem(ctx context.Context, userID, itemID uint64) error {
	item, err := s.loadItem(ctx, userID, itemID, writers...)
	if err != nil {
		return err
	}
	attachments, err := s.repo.ListAttachments(ctx, itemID)
	if err != nil {
		return apperr.Internal(err)
	}

	if err := s.repo.Delete(ctx, itemID); err != nil {
		return notFoundOr(err, "item")
	}
	for _, a := range attachments {
		if err := s.store.Remove(ctx, a.ObjectName); err != nil {
			s.logger.Warnw("Failed to remove attachment object", "object_name", a.ObjectName, "error", err)
		}
	}

	s.broadcast(ctx, item.BoardID, EventItemDeleted, map[string]interface{}{
		"id":       itemID,
		"columnId": item.ColumnID,
	})
	return nil
}

// MoveItem moves an item between columns of one board. A client whose view
// of the source column is stale gets a conflict.
func (s *service) MoveItem(ctx context.Context, userID uint64, req MoveItemRequest) (*ItemMoved, error) {
	if _, err := s.guard.Require(ctx, userID, req.BoardID, access.KindBoard, writers...); err != nil {
		return nil, err
	}

	item, err := s.repo.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}
	if item.BoardID != req.BoardID {
		return nil, apperr.NotFound("item")
	}
	if item.ColumnID != req.FromColumnID {
		return nil, apperr.Conflict("item is no longer in the source column")
	}

	toBoard, err := s.repo.ColumnBoardID(ctx, req.ToColumnID)
	if err != nil {
		return nil, notFoundOr(err, "column")
	}
	if toBoard != req.BoardID {
		return nil, apperr.Validation("items can only move between columns of the same board",
			map[string]string{"toColumnId": "column belongs to another board"})
	}

	index := -1
	if req.Position != nil {
		index = *req.Position
	}
	moved, err := s.repo.Move(ctx, req.ItemID, req.ToColumnID, index)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}

	event := &ItemMoved{
		ItemID:       moved.ID,
		FromColumnID: req.FromColumnID,
		ToColumnID:   moved.ColumnID,
		Position:     moved.Position,
	}
	s.broadcast(ctx, req.BoardID, EventItemMoved, event)
	return event, nil
}

func (s *service) CreateSubtask(ctx context.Context, userID, itemID uint64, req CreateSubtaskRequest) (*Subtask, error) {
	item, err := s.loadItem(ctx, userID, itemID, writers...)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("invalid subtask", map[string]string{"title": "title is required"})
	}

	subtask := &Subtask{ItemID: itemID, Title: title}
	if err := s.repo.CreateSubtask(ctx, subtask); err != nil {
		return nil, apperr.Internal(err)
	}
	s.broadcast(ctx, item.BoardID, EventSubtaskCreated, subtask)
	return subtask, nil
}

func (s *service) UpdateSubtask(ctx context.Context, userID, subtaskID uint64, req UpdateSubtaskRequest) (*Subtask, error) {
	subtask, err := s.repo.GetSubtask(ctx, subtaskID)
	if err != nil {
		return nil, notFoundOr(err, "subtask")
	}
	item, err := s.loadItem(ctx, userID, subtask.ItemID, writers...)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("invalid subtask", map[string]string{"title": "title is required"})
		}
		subtask.Title = title
	}
	if req.Completed != nil {
		subtask.Completed = *req.Completed
	}

	if err := s.repo.UpdateSubtask(ctx, subtask); err != nil {
		return nil, apperr.Internal(err)
	}
	s.broadcast(ctx, item.BoardID, EventSubtaskUpdated, subtask)
	return subtask, nil
}

// CreateComment is open to every role, viewers included.
func (s *service) CreateComment(ctx context.Context, userID, itemID uint64, req CreateCommentRequest) (*Comment, error) {
	item, err := s.loadItem(ctx, userID, itemID, access.Any...)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Validation("invalid comment", map[string]string{"content": "content is required"})
	}

	comment := &Comment{ItemID: itemID, AuthorID: userID, Content: content}
	if err := s.repo.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Internal(err)
	}

	s.broadcast(ctx, item.BoardID, EventCommentCreated, comment)
	s.eventBus.Publish(utils.EventCommentCreated, userID, comment.ID)
	return comment, nil
}

func (s *service) ListComments(ctx context.Context, userID, itemID uint64) ([]*Comment, error) {
	if _, err := s.loadItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, itemID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if comments == nil {
		comments = []*Comment{}
	}
	return comments, nil
}

// CreateDependency adds the edge itemID -> ToItemID. Self edges, edges across
// boards and edges that would close a cycle are rejected.
func (s *service) CreateDependency(ctx context.Context, userID, itemID uint64, req CreateDependencyRequest) (*Dependency, error) {
	from, err := s.loadItem(ctx, userID, itemID, writers...)
	if err != nil {
		return nil, err
	}
	if req.ToItemID == itemID {
		return nil, apperr.Validation("an item cannot depend on itself", map[string]string{"toItemId": "must differ from the item"})
	}

	to, err := s.repo.GetByID(ctx, req.ToItemID)
	if err != nil {
		return nil, notFoundOr(err, "item")
	}
	if to.BoardID != from.BoardID {
		return nil, apperr.Validation("dependencies must stay within one board", map[string]string{"toItemId": "item belongs to another board"})
	}

	cycle, err := s.repo.HasPath(ctx, to.ID, from.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if cycle {
		return nil, apperr.Validation("dependency would create a cycle", map[string]string{"toItemId": "creates a cycle"})
	}

	depType := req.Type
	if depType == "" {
		depType = DefaultDependencyType
	}
	dep := &Dependency{FromItemID: from.ID, ToItemID: to.ID, Type: depType}
	if err := s.repo.CreateDependency(ctx, dep); err != nil {
		if existing, _ := s.repo.ListDependencies(ctx, from.ID); hasEdge(existing, from.ID, to.ID) {
			return nil, apperr.Conflict("dependency already exists")
		}
		return nil, apperr.Internal(err)
	}

	s.broadcast(ctx, from.BoardID, EventDependencyCreated, dep)
	return dep, nil
}

func hasEdge(deps []*Dependency, from, to uint64) bool {
	for _, d := range deps {
		if d.FromItemID == from && d.ToItemID == to {
			return true
		}
	}
	return false
}

func (s *service) DeleteDependency(ctx context.Context, userID, dependencyID uint64) error {
	dep, err := s.repo.GetDependency(ctx, dependencyID)
	if err != nil {
		return notFoundOr(err, "dependency")
	}
	item, err := s.loadItem(ctx, userID, dep.FromItemID, writers...)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDependency(ctx, dependencyID); err != nil {
		return notFoundOr(err, "dependency")
	}
	s.broadcast(ctx, item.BoardID, EventDependencyDeleted, map[string]interface{}{"id": dependencyID})
	return nil
}

func (s *service) presign(ctx context.Context, a *Attachment) {
	url, err := s.store.PresignedURL(ctx, a.ObjectName, attachmentURLExpiry)
	if err != nil {
		s.logger.Warnw("Failed to presign attachment", "attachment_id", a.ID, "error", err)
		return
	}
	a.URL = url
}

// AddAttachment uploads the object first and removes it again when the row
// cannot be stored.
func (s *service) AddAttachment(ctx context.Context, userID, itemID uint64, upload Upload) (*Attachment, error) {
	item, err := s.loadItem(ctx, userID, itemID, writers...)
	if err != nil {
		return nil, err
	}
	if upload.Size <= 0 {
		return nil, apperr.Validation("empty file", map[string]string{"file": "file is required"})
	}
	if limit := s.store.MaxSize(); upload.Size > limit {
		return nil, apperr.Validation("file too large",
			map[string]string{"file": fmt.Sprintf("must be at most %d bytes", limit)})
	}

	attachment := &Attachment{
		ItemID:      itemID,
		UploaderID:  userID,
		FileName:    upload.FileName,
		ContentType: minio.DetectContentType(upload.FileName),
		Size:        upload.Size,
		ObjectName:  minio.GenerateObjectName(fmt.Sprintf("items/%d", itemID), upload.FileName),
	}
	if err := s.store.Put(ctx, attachment.ObjectName, upload.Body, upload.Size, attachment.ContentType); err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		if rmErr := s.store.Remove(ctx, attachment.ObjectName); rmErr != nil {
			s.logger.Warnw("Failed to remove orphaned attachment object", "object_name", attachment.ObjectName, "error", rmErr)
		}
		return nil, apperr.Internal(err)
	}

	s.presign(ctx, attachment)
	s.broadcast(ctx, item.BoardID, EventAttachmentAdded, attachment)
	return attachment, nil
}

func (s *service) DeleteAttachment(ctx context.Context, userID, attachmentID uint64) error {
	attachment, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return notFoundOr(err, "attachment")
	}
	item, err := s.loadItem(ctx, userID, attachment.ItemID, writers...)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteAttachment(ctx, attachmentID); err != nil {
		return notFoundOr(err, "attachment")
	}
	if err := s.store.Remove(ctx, attachment.ObjectName); err != nil {
		s.logger.Warnw("Failed to remove attachment object", "object_name", attachment.ObjectName, "error", err)
	}
	s.broadcast(ctx, item.BoardID, EventAttachmentDeleted, map[string]interface{}{"id": attachmentID, "itemId": item.ID})
	return nil
}
