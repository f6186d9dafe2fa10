package achievement

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/utils"
)

const EventAchievementUnlocked = "AchievementUnlocked"

type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
}

type Service interface {
	List(ctx context.Context) ([]*Achievement, error)
	ListForUser(ctx context.Context, userID uint64) ([]*UserProgress, error)
	Record(ctx context.Context, userID uint64, event string) ([]*Achievement, error)
	Subscribe(bus *utils.EventBus)
}

type service struct {
	repo   Repository
	hub    Broadcaster
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(repo Repository, hub Broadcaster, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		hub:    hub,
		logger: logger.Sugar(),
		now:    time.Now,
	}
}

func (s *service) List(ctx context.Context) ([]*Achievement, error) {
	out, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *service) ListForUser(ctx context.Context, userID uint64) ([]*UserProgress, error) {
	out, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

// Record counts one occurrence of event for the user and returns the
// achievements it unlocked.
func (s *service) Record(ctx context.Context, userID uint64, event string) ([]*Achievement, error) {
	candidates, err := s.repo.ListByEvent(ctx, event)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	var unlocked []*Achievement
	for _, a := range candidates {
		ok, err := s.repo.Advance(ctx, userID, a, s.now().UTC())
		if err != nil {
			return unlocked, apperr.Internal(err)
		}
		if !ok {
			continue
		}
		unlocked = append(unlocked, a)
		s.logger.Infow("Achievement unlocked", "user_id", userID, "code", a.Code)
		if err := s.hub.Broadcast(ctx, access.UserRoom(userID), EventAchievementUnlocked, a); err != nil {
			s.logger.Warnw("Failed to broadcast achievement", "user_id", userID, "code", a.Code, "error", err)
		}
	}
	return unlocked, nil
}

// Subscribe counts every catalog event published on bus.
func (s *service) Subscribe(bus *utils.EventBus) {
	seen := make(map[string]bool)
	for _, a := range Catalog {
		if seen[a.Event] {
			continue
		}
		seen[a.Event] = true
		bus.Subscribe(a.Event, func(ctx context.Context, e utils.Event) {
			if e.UserID == 0 {
				return
			}
			if _, err := s.Record(ctx, e.UserID, e.Event); err != nil {
				s.logger.Errorw("Failed to record achievement progress", "user_id", e.UserID, "event", e.Event, "error", err)
			}
		})
	}
}
