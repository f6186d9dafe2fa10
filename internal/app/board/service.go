package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/providers/redis"
	"taskboard/internal/utils"
)

// Realtime events emitted to board rooms.
const (
	EventBoardUpdated  = "BoardUpdated"
	EventBoardDeleted  = "BoardDeleted"
	EventColumnCreated = "ColumnCreated"
	EventColumnUpdated = "ColumnUpdated"
	EventColumnDeleted = "ColumnDeleted"
	EventMemberUpdated = "MemberUpdated"
	EventMemberRemoved = "MemberRemoved"
)

// Broadcaster delivers an event to a realtime room and takes room access
// away from open connections.
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
	Evict(ctx context.Context, userID uint64, room string) error
	EvictRoom(ctx context.Context, room string) error
}

// ObjectRemover deletes attachment contents from object storage.
type ObjectRemover interface {
	Remove(ctx context.Context, objectName string) error
}

type Service interface {
	CreateBoard(ctx context.Context, userID uint64, req CreateBoardRequest) (*Board, error)
	ListBoards(ctx context.Context, userID uint64) ([]*BoardSummary, error)
	GetBoard(ctx context.Context, userID, boardID uint64) (*BoardDetail, error)
	UpdateBoard(ctx context.Context, userID, boardID uint64, req UpdateBoardRequest) (*Board, error)
	DeleteBoard(ctx context.Context, userID, boardID uint64) error

	CreateColumn(ctx context.Context, userID, boardID uint64, req CreateColumnRequest) (*Column, error)
	UpdateColumn(ctx context.Context, userID, boardID, columnID uint64, req UpdateColumnRequest) (*Column, error)
	DeleteColumn(ctx context.Context, userID, boardID, columnID uint64) error

	ListMembers(ctx context.Context, userID, boardID uint64) ([]*BoardMember, error)
	UpdateMemberRole(ctx context.Context, userID, boardID, targetID uint64, role access.Role) (*BoardMember, error)
	RemoveMember(ctx context.Context, userID, boardID, targetID uint64) error
}

type service struct {
	repo     Repository
	guard    *access.Guard
	hub      Broadcaster
	store    ObjectRemover
	redisP   *redis.RedisProvider
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewService(
	repo Repository,
	guard *access.Guard,
	hub Broadcaster,
	store ObjectRemover,
	redisP *redis.RedisProvider,
	eventBus *utils.EventBus,
	logger *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		guard:    guard,
		hub:      hub,
		store:    store,
		redisP:   redisP,
		eventBus: eventBus,
		logger:   logger.Sugar(),
	}
}

// ListCacheKey is the cache key of a user's board list. Anything that
// changes a user's memberships must delete it.
func ListCacheKey(userID uint64) string {
	return fmt.Sprintf("boards:user:%d", userID)
}

func (s *service) broadcast(ctx context.Context, boardID uint64, event string, data interface{}) {
	if err := s.hub.Broadcast(ctx, access.Room(access.KindBoard, boardID), event, data); err != nil {
		s.logger.Warnw("Failed to broadcast board event", "board_id", boardID, "event", event, "error", err)
	}
}

// removeObjects runs after the rows are committed. A failure leaves an
// orphaned object, never a row pointing at a missing one.
func (s *service) removeObjects(ctx context.Context, objects []string) {
	if s.store == nil {
		return
	}
	for _, name := range objects {
		if err := s.store.Remove(ctx, name); err != nil {
			s.logger.Warnw("Failed to remove attachment object", "object_name", name, "error", err)
		}
	}
}

func (s *service) invalidateMembers(ctx context.Context, boardID uint64) {
	members, err := s.repo.ListMembers(ctx, boardID)
	if err != nil {
		s.logger.Warnw("Failed to load members for cache invalidation", "board_id", boardID, "error", err)
		return
	}
	keys := make([]string, 0, len(members))
	for _, m := range members {
		keys = append(keys, ListCacheKey(m.UserID))
	}
	if len(keys) > 0 {
		s.redisP.Del(ctx, keys...)
	}
}

func (s *service) CreateBoard(ctx context.Context, userID uint64, req CreateBoardRequest) (*Board, error) {
	board := &Board{
		Name:     strings.TrimSpace(req.Name),
		OwnerID:  userID,
		IsPublic: req.IsPublic,
	}
	if board.Name == "" {
		return nil, apperr.Validation("invalid board", map[string]string{"name": "name is required"})
	}

	if err := s.repo.Create(ctx, board); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create board: %w", err))
	}
	s.redisP.Del(ctx, ListCacheKey(userID))
	s.eventBus.Publish(utils.EventBoardCreated, userID, board.ID)

	s.logger.Infow("Board created", "board_id", board.ID, "owner_id", userID)
	return board, nil
}

func (s *service) ListBoards(ctx context.Context, userID uint64) ([]*BoardSummary, error) {
	key := ListCacheKey(userID)
	var cached []*BoardSummary
	if s.redisP.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	boards, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to list boards: %w", err))
	}
	if boards == nil {
		boards = []*BoardSummary{}
	}
	s.redisP.SetJSON(ctx, key, boards, 0)
	return boards, nil
}

func (s *service) getBoard(ctx context.Context, boardID uint64) (*Board, error) {
	board, err := s.repo.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("board")
		}
		return nil, apperr.Internal(err)
	}
	return board, nil
}

// GetBoard returns the board with its columns. Public boards are readable by
// any authenticated user.
func (s *service) GetBoard(ctx context.Context, userID, boardID uint64) (*BoardDetail, error) {
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	role := s.guard.Resolve(ctx, userID, boardID, access.KindBoard)
	if role == access.RoleNone && !board.IsPublic {
		return nil, apperr.Forbidden(fmt.Sprintf("no access to board %d", boardID))
	}

	columns, err := s.repo.ListColumns(ctx, boardID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &BoardDetail{Board: board, Role: role, Columns: columns}, nil
}

func (s *service) UpdateBoard(ctx context.Context, userID, boardID uint64, req UpdateBoardRequest) (*Board, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin, access.RoleEditor); err != nil {
		return nil, err
	}
	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("invalid board", map[string]string{"name": "name is required"})
		}
		board.Name = name
	}
	if req.IsPublic != nil {
		board.IsPublic = *req.IsPublic
	}

	if err := s.repo.Update(ctx, board); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to update board: %w", err))
	}
	s.invalidateMembers(ctx, boardID)
	s.broadcast(ctx, boardID, EventBoardUpdated, board)
	return board, nil
}

func (s *service) DeleteBoard(ctx context.Context, userID, boardID uint64) error {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin); err != nil {
		return err
	}

	// Members are gone after the delete, so collect their cache keys first.
	s.invalidateMembers(ctx, boardID)
	objects, err := s.repo.Delete(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("board")
		}
		return apperr.Internal(fmt.Errorf("failed to delete board: %w", err))
	}
	s.removeObjects(ctx, objects)

	room := access.Room(access.KindBoard, boardID)
	s.broadcast(ctx, boardID, EventBoardDeleted, map[string]interface{}{"id": boardID})
	if err := s.hub.EvictRoom(ctx, room); err != nil {
		s.logger.Warnw("Failed to close board room", "board_id", boardID, "error", err)
	}
	s.logger.Infow("Board deleted", "board_id", boardID, "user_id", userID)
	return nil
}

func (s *service) CreateColumn(ctx context.Context, userID, boardID uint64, req CreateColumnRequest) (*Column, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperr.Validation("invalid column", map[string]string{"title": "title is required"})
	}

	column := &Column{BoardID: boardID, Title: title}
	if req.Order != nil {
		column.Position = *req.Order
	} else {
		next, err := s.repo.NextColumnPosition(ctx, boardID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		column.Position = next
	}

	if err := s.repo.CreateColumn(ctx, column); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create column: %w", err))
	}
	s.broadcast(ctx, boardID, EventColumnCreated, column)
	return column, nil
}

func (s *service) getColumn(ctx context.Context, boardID, columnID uint64) (*Column, error) {
	column, err := s.repo.GetColumn(ctx, boardID, columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("column")
		}
		return nil, apperr.Internal(err)
	}
	return column, nil
}

func (s *service) UpdateColumn(ctx context.Context, userID, boardID, columnID uint64, req UpdateColumnRequest) (*Column, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin, access.RoleEditor); err != nil {
		return nil, err
	}
	column, err := s.getColumn(ctx, boardID, columnID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperr.Validation("invalid column", map[string]string{"title": "title is required"})
		}
		column.Title = title
	}
	if req.Order != nil {
		column.Position = *req.Order
	}

	if err := s.repo.UpdateColumn(ctx, column); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to update column: %w", err))
	}
	s.broadcast(ctx, boardID, EventColumnUpdated, column)
	return column, nil
}

func (s *service) DeleteColumn(ctx context.Context, userID, boardID, columnID uint64) error {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.getColumn(ctx, boardID, columnID); err != nil {
		return err
	}

	objects, err := s.repo.DeleteColumn(ctx, columnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("column")
		}
		return apperr.Internal(fmt.Errorf("failed to delete column: %w", err))
	}
	s.removeObjects(ctx, objects)
	s.broadcast(ctx, boardID, EventColumnDeleted, map[string]interface{}{"id": columnID, "boardId": boardID})
	return nil
}

func (s *service) ListMembers(ctx context.Context, userID, boardID uint64) ([]*BoardMember, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.Any...); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, boardID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return members, nil
}

// checkNotLastAdmin rejects changes that would leave the board without an
// admin member. The owner is protected separately.
func (s *service) checkNotLastAdmin(ctx context.Context, boardID uint64, member *BoardMember) error {
	if role, _ := access.ParseRole(member.Role); role != access.RoleAdmin {
		return nil
	}
	admins, err := s.repo.CountAdmins(ctx, boardID)
	if err != nil {
		return apperr.Internal(err)
	}
	if admins <= 1 {
		return apperr.Validation("a board must keep at least one admin", nil)
	}
	return nil
}

func (s *service) getMember(ctx context.Context, boardID, userID uint64) (*BoardMember, error) {
	member, err := s.repo.GetMember(ctx, boardID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("member")
		}
		return nil, apperr.Internal(err)
	}
	return member, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, userID, boardID, targetID uint64, role access.Role) (*BoardMember, error) {
	if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin); err != nil {
		return nil, err
	}
	if role == access.RoleNone {
		return nil, apperr.Validation("invalid role", map[string]string{"role": "must be one of admin editor viewer"})
	}
	if targetID == userID {
		return nil, apperr.Forbidden("you cannot change your own role")
	}

	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if board.OwnerID == targetID {
		return nil, apperr.Validation("the board owner's role cannot be changed", nil)
	}

	member, err := s.getMember(ctx, boardID, targetID)
	if err != nil {
		return nil, err
	}
	if role != access.RoleAdmin {
		if err := s.checkNotLastAdmin(ctx, boardID, member); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateMemberRole(ctx, boardID, targetID, role.String()); err != nil {
		return nil, apperr.Internal(err)
	}
	member.Role = role.String()
	s.redisP.Del(ctx, ListCacheKey(targetID))

	s.broadcast(ctx, boardID, EventMemberUpdated, member)
	s.logger.Infow("Board member role changed", "board_id", boardID, "user_id", targetID, "role", member.Role, "actor_id", userID)
	return member, nil
}

// RemoveMember lets admins remove anyone but the owner, and lets any member
// leave on their own.
func (s *service) RemoveMember(ctx context.Context, userID, boardID, targetID uint64) error {
	if targetID != userID {
		if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.RoleAdmin); err != nil {
			return err
		}
	} else if _, err := s.guard.Require(ctx, userID, boardID, access.KindBoard, access.Any...); err != nil {
		return err
	}

	board, err := s.getBoard(ctx, boardID)
	if err != nil {
		return err
	}
	if board.OwnerID == targetID {
		return apperr.Validation("the board owner cannot be removed", nil)
	}

	member, err := s.getMember(ctx, boardID, targetID)
	if err != nil {
		return err
	}
	if err := s.checkNotLastAdmin(ctx, boardID, member); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, boardID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("member")
		}
		return apperr.Internal(err)
	}
	s.redisP.Del(ctx, ListCacheKey(targetID))

	payload := map[string]interface{}{"boardId": boardID, "userId": targetID}
	s.broadcast(ctx, boardID, EventMemberRemoved, payload)
	if err := s.hub.Evict(ctx, targetID, access.Room(access.KindBoard, boardID)); err != nil {
		s.logger.Warnw("Failed to evict removed member", "board_id", boardID, "user_id", targetID, "error", err)
	}
	if err := s.hub.Broadcast(ctx, access.UserRoom(targetID), EventMemberRemoved, payload); err != nil {
		s.logger.Warnw("Failed to notify removed member", "user_id", targetID, "error", err)
	}
	return nil
}
