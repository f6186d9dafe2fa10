package access

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"taskboard/internal/apperr"
)

// Any allows every role except RoleNone.
var Any = []Role{RoleAdmin, RoleEditor, RoleViewer}

type Guard struct {
	resolver *Resolver
	denied   *prometheus.CounterVec
}

func NewGuard(resolver *Resolver) *Guard {
	return &Guard{resolver: resolver}
}

// CountDenials makes the guard count rejections in c, labelled by entity kind.
func (g *Guard) CountDenials(c *prometheus.CounterVec) {
	g.denied = c
}

func (g *Guard) Resolve(ctx context.Context, userID, entityID uint64, kind EntityKind) Role {
	return g.resolver.Resolve(ctx, userID, entityID, kind)
}

// Require returns the resolved role when it is one of allowed, and a
// forbidden error otherwise.
func (g *Guard) Require(ctx context.Context, userID, entityID uint64, kind EntityKind, allowed ...Role) (Role, error) {
	role := g.resolver.Resolve(ctx, userID, entityID, kind)
	if role == RoleNone {
		g.deny(kind)
		return role, apperr.Forbidden(fmt.Sprintf("no access to %s %d", kind, entityID))
	}
	for _, a := range allowed {
		if role == a {
			return role, nil
		}
	}
	g.deny(kind)
	return role, apperr.Forbidden(fmt.Sprintf("role %s is not allowed on %s %d", role, kind, entityID))
}

func (g *Guard) deny(kind EntityKind) {
	if g.denied != nil {
		g.denied.WithLabelValues(string(kind)).Inc()
	}
}
