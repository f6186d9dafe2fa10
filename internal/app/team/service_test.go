package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
	"taskboard/internal/testutil"
)

func setup(t *testing.T) (Service, *access.Guard, *gorm.DB, *testutil.Recorder) {
	t.Helper()
	db := testutil.SetupTestDB(t, &Team{}, &TeamMember{})
	for _, stmt := range []string{
		`CREATE TABLE invitations (id INTEGER PRIMARY KEY, entity_kind TEXT, entity_id INTEGER)`,
		`CREATE TABLE chat_rooms (id INTEGER PRIMARY KEY, room_type TEXT, entity_id INTEGER)`,
		`CREATE TABLE chat_messages (id INTEGER PRIMARY KEY, room_id INTEGER)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	repo := NewRepository(db)
	guard := access.NewGuard(access.NewResolver(zap.NewNop(), nil, repo))
	hub := &testutil.Recorder{}
	return NewService(repo, guard, hub, zap.NewNop()), guard, db, hub
}

func TestCreateTeam_OwnerIsAdmin(t *testing.T) {
	svc, guard, _, _ := setup(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, 7, CreateTeamRequest{Name: "Platform"})
	require.NoError(t, err)

	assert.Equal(t, access.RoleAdmin, guard.Resolve(ctx, 7, team.ID, access.KindTeam))
	assert.Equal(t, access.RoleNone, guard.Resolve(ctx, 8, team.ID, access.KindTeam))
	// Team ids never resolve against the board store.
	assert.Equal(t, access.RoleNone, guard.Resolve(ctx, 7, team.ID, access.KindBoard))

	teams, err := svc.ListTeams(ctx, 7)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, "admin", teams[0].Role)

	_, err = svc.CreateTeam(ctx, 7, CreateTeamRequest{Name: "   "})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestTeamMembership(t *testing.T) {
	svc, guard, db, hub := setup(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, 1, CreateTeamRequest{Name: "Team"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&TeamMember{TeamID: team.ID, UserID: 2, Role: "Viewer"}).Error)

	// Stored roles are matched case-insensitively.
	assert.Equal(t, access.RoleViewer, guard.Resolve(ctx, 2, team.ID, access.KindTeam))

	_, err = svc.ListMembers(ctx, 3, team.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.UpdateMemberRole(ctx, 2, team.ID, 1, access.RoleViewer)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	member, err := svc.UpdateMemberRole(ctx, 1, team.ID, 2, access.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", member.Role)

	members, err := svc.ListMembers(ctx, 2, team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	err = svc.RemoveMember(ctx, 2, team.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.RemoveMember(ctx, 2, team.ID, 2))
	assert.Equal(t, access.RoleNone, guard.Resolve(ctx, 2, team.ID, access.KindTeam))
	assert.Len(t, hub.Named(EventMemberRemoved), 2)
	assert.Equal(t, []testutil.Eviction{{UserID: 2, Room: access.Room(access.KindTeam, team.ID)}}, hub.Evictions())
}

func TestDeleteTeam(t *testing.T) {
	svc, guard, db, hub := setup(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, 1, CreateTeamRequest{Name: "Team"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&TeamMember{TeamID: team.ID, UserID: 2, Role: "editor"}).Error)

	assert.ErrorIs(t, svc.DeleteTeam(ctx, 2, team.ID), apperr.ErrForbidden)
	require.NoError(t, svc.DeleteTeam(ctx, 1, team.ID))

	assert.Equal(t, access.RoleNone, guard.Resolve(ctx, 1, team.ID, access.KindTeam))
	_, err = svc.GetTeam(ctx, 1, team.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	var count int64
	require.NoError(t, db.Model(&TeamMember{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, []testutil.Eviction{{Room: access.Room(access.KindTeam, team.ID)}}, hub.Evictions())
}
