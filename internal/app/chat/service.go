package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/utils"
)

const EventReceiveMessage = "ReceiveMessage"

const (
	maxContentLength = 2000
	defaultPageSize  = 50
	maxPageSize      = 100
)

type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
}

type Service interface {
	Send(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, content string) (*MessageDTO, error)
	History(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, before uint64, limit int) ([]*MessageDTO, error)
}

type service struct {
	repo     Repository
	guard    *access.Guard
	hub      Broadcaster
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewService(repo Repository, guard *access.Guard, hub Broadcaster, eventBus *utils.EventBus, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		guard:    guard,
		hub:      hub,
		eventBus: eventBus,
		logger:   logger.Sugar(),
	}
}

func toDTO(room *Room, msg *Message) *MessageDTO {
	return &MessageDTO{
		ID:       msg.ID,
		RoomType: access.EntityKind(room.RoomType),
		EntityID: room.EntityID,
		SenderID: msg.SenderID,
		Content:  msg.Content,
		SentAt:   msg.SentAt,
	}
}

// Send stores the message and then broadcasts it to the room. Nothing is
// broadcast when the message cannot be stored.
func (s *service) Send(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, content string) (*MessageDTO, error) {
	if _, err := s.guard.Require(ctx, userID, entityID, kind, access.Any...); err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > maxContentLength {
		return nil, apperr.Validation("invalid message",
			map[string]string{"content": fmt.Sprintf("must be between 1 and %d characters", maxContentLength)})
	}

	room, err := s.repo.GetOrCreateRoom(ctx, kind, entityID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to open chat room: %w", err))
	}

	msg := &Message{
		RoomID:   room.ID,
		SenderID: userID,
		Content:  content,
		SentAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to store message: %w", err))
	}

	dto := toDTO(room, msg)
	if err := s.hub.Broadcast(ctx, access.Room(kind, entityID), EventReceiveMessage, dto); err != nil {
		s.logger.Warnw("Failed to broadcast chat message", "message_id", msg.ID, "error", err)
	}
	s.eventBus.Publish(utils.EventMessageSent, userID, msg.ID)
	return dto, nil
}

func (s *service) History(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, before uint64, limit int) ([]*MessageDTO, error) {
	if _, err := s.guard.Require(ctx, userID, entityID, kind, access.Any...); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	room, err := s.repo.FindRoom(ctx, kind, entityID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []*MessageDTO{}, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}

	msgs, err := s.repo.ListMessages(ctx, room.ID, before, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]*MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toDTO(room, m))
	}
	return out, nil
}

// Sender adapts the service to the realtime gateway's chat hook.
type Sender struct {
	Service Service
}

func (a Sender) Send(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64, content string) (interface{}, error) {
	return a.Service.Send(ctx, userID, kind, entityID, content)
}
