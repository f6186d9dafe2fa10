package invitation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/app/board"
	"taskboard/internal/app/user"
	"taskboard/internal/apperr"
	"taskboard/internal/metrics"
	"taskboard/internal/providers/redis"
	"taskboard/internal/utils"
)

const (
	EventInvitationReceived = "InvitationReceived"
	EventMemberJoined       = "MemberJoined"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
}

// UserDirectory looks up accounts by id and email.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint64) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

type Service interface {
	Create(ctx context.Context, inviterID uint64, kind access.EntityKind, entityID uint64, email string, role access.Role) (*Invitation, error)
	Accept(ctx context.Context, userID uint64, kind access.EntityKind, token string) (*Membership, error)
	ListPending(ctx context.Context, userID uint64) ([]*Invitation, error)
	ListForEntity(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64) ([]*Invitation, error)
	Revoke(ctx context.Context, userID, invitationID uint64) error
}

type service struct {
	repo     Repository
	guard    *access.Guard
	users    UserDirectory
	hub      Broadcaster
	redisP   *redis.RedisProvider
	metrics  *metrics.Metrics
	eventBus *utils.EventBus
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewService(
	repo Repository,
	guard *access.Guard,
	users UserDirectory,
	hub Broadcaster,
	redisP *redis.RedisProvider,
	m *metrics.Metrics,
	eventBus *utils.EventBus,
	ttl time.Duration,
	logger *zap.Logger,
) Service {
	return &service{
		repo:     repo,
		guard:    guard,
		users:    users,
		hub:      hub,
		redisP:   redisP,
		metrics:  m,
		eventBus: eventBus,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.Sugar(),
	}
}

func (s *service) Create(ctx context.Context, inviterID uint64, kind access.EntityKind, entityID uint64, email string, role access.Role) (*Invitation, error) {
	if _, err := s.guard.Require(ctx, inviterID, entityID, kind, access.RoleAdmin); err != nil {
		return nil, err
	}
	if role == access.RoleNone {
		return nil, apperr.Validation("invalid role", map[string]string{"role": "must be one of admin editor viewer"})
	}
	email = user.NormalizeEmail(email)
	if email == "" {
		return nil, apperr.Validation("invalid email", map[string]string{"email": "email is required"})
	}

	invitee, err := s.users.FindByEmail(ctx, email)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}
	if invitee != nil && s.guard.Resolve(ctx, invitee.ID, entityID, kind).AtLeast(role) {
		return nil, apperr.Conflict(fmt.Sprintf("user is already a member of this %s", kind))
	}

	inv := &Invitation{
		Token:      uuid.NewString(),
		EntityKind: string(kind),
		EntityID:   entityID,
		Email:      email,
		Role:       role.String(),
		InvitedBy:  inviterID,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create invitation: %w", err))
	}
	s.logger.Infow("Invitation created",
		"invitation_id", inv.ID, "kind", kind, "entity_id", entityID, "role", inv.Role, "inviter_id", inviterID)

	if invitee != nil {
		if err := s.hub.Broadcast(ctx, access.UserRoom(invitee.ID), EventInvitationReceived, inv); err != nil {
			s.logger.Warnw("Failed to notify invitee", "user_id", invitee.ID, "error", err)
		}
	}
	return inv, nil
}

func (s *service) expired(inv *Invitation) bool {
	return s.ttl > 0 && s.now().Sub(inv.CreatedAt) > s.ttl
}

func (s *service) outcome(label string) {
	s.metrics.InvitationsAccepted.WithLabelValues(label).Inc()
}

// Accept redeems token for userID. The invitation must target kind and the
// caller's email.
func (s *service) Accept(ctx context.Context, userID uint64, kind access.EntityKind, token string) (*Membership, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.outcome("not_found")
			return nil, apperr.ErrInvitationNotFound
		}
		return nil, apperr.Internal(err)
	}
	if inv.EntityKind != string(kind) {
		s.outcome("not_found")
		return nil, apperr.ErrInvitationNotFound
	}
	if inv.Accepted {
		s.outcome("already_accepted")
		return nil, apperr.ErrInvitationAccepted
	}
	if s.expired(inv) {
		s.outcome("expired")
		return nil, apperr.ErrInvitationExpired
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Email != inv.Email {
		s.outcome("forbidden")
		return nil, apperr.Forbidden("this invitation was sent to another email address")
	}

	membership, err := s.repo.Accept(ctx, token, userID, s.now())
	switch {
	case errors.Is(err, errAlreadyAccepted):
		s.outcome("already_accepted")
		return nil, apperr.ErrInvitationAccepted
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.outcome("not_found")
		return nil, apperr.ErrInvitationNotFound
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("failed to accept invitation: %w", err))
	}
	s.outcome("accepted")

	if membership.EntityKind == access.KindBoard {
		s.redisP.Del(ctx, board.ListCacheKey(userID))
	}
	room := access.Room(membership.EntityKind, membership.EntityID)
	if err := s.hub.Broadcast(ctx, room, EventMemberJoined, membership); err != nil {
		s.logger.Warnw("Failed to broadcast new member", "room", room, "error", err)
	}
	s.eventBus.Publish(utils.EventInvitationAccepted, userID, inv.ID)

	s.logger.Infow("Invitation accepted",
		"invitation_id", inv.ID, "user_id", userID, "kind", membership.EntityKind,
		"entity_id", membership.EntityID, "role", membership.Role)
	return membership, nil
}

func (s *service) ListPending(ctx context.Context, userID uint64) ([]*Invitation, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := time.Time{}
	if s.ttl > 0 {
		since = s.now().Add(-s.ttl)
	}
	invs, err := s.repo.ListPendingByEmail(ctx, u.Email, since)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if invs == nil {
		invs = []*Invitation{}
	}
	return invs, nil
}

func (s *service) ListForEntity(ctx context.Context, userID uint64, kind access.EntityKind, entityID uint64) ([]*Invitation, error) {
	if _, err := s.guard.Require(ctx, userID, entityID, kind, access.RoleAdmin); err != nil {
		return nil, err
	}
	invs, err := s.repo.ListPendingForEntity(ctx, kind, entityID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if invs == nil {
		invs = []*Invitation{}
	}
	return invs, nil
}

// Revoke deletes a pending invitation. Accepted ones are kept as history.
func (s *service) Revoke(ctx context.Context, userID, invitationID uint64) error {
	inv, err := s.repo.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrInvitationNotFound
		}
		return apperr.Internal(err)
	}
	kind, ok := access.ParseEntityKind(inv.EntityKind)
	if !ok {
		return apperr.ErrInvitationNotFound
	}
	if _, err := s.guard.Require(ctx, userID, inv.EntityID, kind, access.RoleAdmin); err != nil {
		return err
	}
	if inv.Accepted {
		return apperr.ErrInvitationAccepted
	}

	if err := s.repo.DeletePending(ctx, invitationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrInvitationAccepted
		}
		return apperr.Internal(err)
	}
	s.logger.Infow("Invitation revoked", "invitation_id", invitationID, "user_id", userID)
	return nil
}
