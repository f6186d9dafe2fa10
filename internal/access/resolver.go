package access

import (
	"context"

	"go.uber.org/zap"
)

// MembershipSource is the lookup a Resolver needs from a board or team store.
type MembershipSource interface {
	// MemberRole returns the stored role for (entityID, userID).
	MemberRole(ctx context.Context, entityID, userID uint64) (role string, found bool, err error)
	// OwnerID returns the owner of the entity.
	OwnerID(ctx context.Context, entityID uint64) (ownerID uint64, found bool, err error)
}

type Resolver struct {
	sources map[EntityKind]MembershipSource
	logger  *zap.SugaredLogger
}

func NewResolver(logger *zap.Logger, boards, teams MembershipSource) *Resolver {
	return &Resolver{
		sources: map[EntityKind]MembershipSource{
			KindBoard: boards,
			KindTeam:  teams,
		},
		logger: logger.Sugar(),
	}
}

// Resolve returns the role of userID on the entity. The owner is always
// admin. Lookup failures are logged and resolve to RoleNone.
func (r *Resolver) Resolve(ctx context.Context, userID, entityID uint64, kind EntityKind) Role {
	src, ok := r.sources[kind]
	if !ok || src == nil || userID == 0 {
		return RoleNone
	}

	ownerID, found, err := src.OwnerID(ctx, entityID)
	if err != nil {
		r.logger.Errorw("Role resolution: owner lookup failed",
			"kind", kind, "entity_id", entityID, "user_id", userID, "error", err)
		return RoleNone
	}
	if !found {
		return RoleNone
	}
	if ownerID == userID {
		return RoleAdmin
	}

	stored, found, err := src.MemberRole(ctx, entityID, userID)
	if err != nil {
		r.logger.Errorw("Role resolution: membership lookup failed",
			"kind", kind, "entity_id", entityID, "user_id", userID, "error", err)
		return RoleNone
	}
	if !found {
		return RoleNone
	}
	role, ok := ParseRole(stored)
	if !ok {
		r.logger.Warnw("Role resolution: unknown stored role",
			"kind", kind, "entity_id", entityID, "user_id", userID, "role", stored)
		return RoleNone
	}
	return role
}
