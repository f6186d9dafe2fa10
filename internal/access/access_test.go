package access

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
)

type memberKey struct{ entity, user uint64 }

type fakeSource struct {
	owners  map[uint64]uint64
	members map[memberKey]string
	err     error
}

func (f *fakeSource) MemberRole(_ context.Context, entityID, userID uint64) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	r, ok := f.members[memberKey{entityID, userID}]
	return r, ok, nil
}

func (f *fakeSource) OwnerID(_ context.Context, entityID uint64) (uint64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	o, ok := f.owners[entityID]
	return o, ok, nil
}

func newFixture() (*Guard, *fakeSource) {
	boards := &fakeSource{
		owners: map[uint64]uint64{1: 100},
		members: map[memberKey]string{
			{1, 200}: "Editor",
			{1, 300}: "VIEWER",
			{1, 400}: "superuser",
		},
	}
	teams := &fakeSource{
		owners:  map[uint64]uint64{9: 500},
		members: map[memberKey]string{{9, 200}: "admin"},
	}
	return NewGuard(NewResolver(zap.NewNop(), boards, teams)), boards
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{"admin": RoleAdmin, "ADMIN": RoleAdmin, " Editor ": RoleEditor, "viewer": RoleViewer}
	for in, want := range cases {
		got, ok := ParseRole(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	got, ok := ParseRole("owner")
	assert.False(t, ok)
	assert.Equal(t, RoleNone, got)
}

func TestRole_JSON(t *testing.T) {
	var r Role
	require.NoError(t, r.UnmarshalJSON([]byte(`"EDITOR"`)))
	assert.Equal(t, RoleEditor, r)
	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"editor"`, string(data))
	assert.Error(t, r.UnmarshalJSON([]byte(`"root"`)))
}

func TestResolver_Resolve(t *testing.T) {
	guard, _ := newFixture()
	ctx := context.Background()

	assert.Equal(t, RoleAdmin, guard.Resolve(ctx, 100, 1, KindBoard), "owner without row is admin")
	assert.Equal(t, RoleEditor, guard.Resolve(ctx, 200, 1, KindBoard))
	assert.Equal(t, RoleViewer, guard.Resolve(ctx, 300, 1, KindBoard), "stored casing is normalised")
	assert.Equal(t, RoleNone, guard.Resolve(ctx, 400, 1, KindBoard), "unknown stored role")
	assert.Equal(t, RoleNone, guard.Resolve(ctx, 999, 1, KindBoard), "non member")
	assert.Equal(t, RoleNone, guard.Resolve(ctx, 100, 2, KindBoard), "missing board")
	assert.Equal(t, RoleAdmin, guard.Resolve(ctx, 200, 9, KindTeam))
	assert.Equal(t, RoleNone, guard.Resolve(ctx, 200, 9, EntityKind("org")))
}

func TestResolver_StoreErrorResolvesToNone(t *testing.T) {
	guard, boards := newFixture()
	boards.err = errors.New("db down")

	assert.Equal(t, RoleNone, guard.Resolve(context.Background(), 100, 1, KindBoard))
}

func TestGuard_Require(t *testing.T) {
	guard, _ := newFixture()
	ctx := context.Background()

	role, err := guard.Require(ctx, 200, 1, KindBoard, RoleAdmin, RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, RoleEditor, role)

	_, err = guard.Require(ctx, 300, 1, KindBoard, RoleAdmin, RoleEditor)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = guard.Require(ctx, 300, 1, KindBoard, Any...)
	assert.NoError(t, err)
}

func TestGuard_NonMemberIsForbiddenForEveryRoleSet(t *testing.T) {
	guard, _ := newFixture()
	sets := [][]Role{{RoleAdmin}, {RoleAdmin, RoleEditor}, Any}
	for _, allowed := range sets {
		role, err := guard.Require(context.Background(), 777, 1, KindBoard, allowed...)
		assert.Equal(t, RoleNone, role)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	}
}

func TestRoomNames(t *testing.T) {
	assert.Equal(t, "board:12", Room(KindBoard, 12))
	assert.Equal(t, "team:3", Room(KindTeam, 3))
	assert.Equal(t, "user:5", UserRoom(5))
}

func TestGuard_CountsDenials(t *testing.T) {
	guard, _ := newFixture()
	denied := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "denied_total"}, []string{"kind"})
	guard.CountDenials(denied)
	ctx := context.Background()

	_, _ = guard.Require(ctx, 300, 1, KindBoard, RoleAdmin)
	_, _ = guard.Require(ctx, 777, 9, KindTeam, Any...)
	_, _ = guard.Require(ctx, 200, 1, KindBoard, RoleEditor)

	assert.Equal(t, 1.0, promtest.ToFloat64(denied.WithLabelValues("board")))
	assert.Equal(t, 1.0, promtest.ToFloat64(denied.WithLabelValues("team")))
}
