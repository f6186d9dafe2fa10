package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/apperr"
	"taskboard/internal/auth"
	"taskboard/internal/testutil"
)

func newTestService(t *testing.T) (Service, Repository, *testutil.Recorder) {
	t.Helper()
	db := testutil.SetupTestDB(t, &User{})
	redisP, _ := testutil.SetupRedis(t)
	repo := NewRepository(db)
	hub := &testutil.Recorder{}
	return NewService(repo, auth.NewJWTService("secret", time.Hour), redisP, hub, zap.NewNop()), repo, hub
}

func register(t *testing.T, svc Service, email string) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       email,
		Password:    "password123",
		DisplayName: "Someone",
	})
	require.NoError(t, err)
	return resp
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	resp := register(t, svc, "  U1@Example.com ")
	assert.Equal(t, "u1@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.Token)

	_, err := svc.Register(ctx, RegisterRequest{Email: "u1@example.com", Password: "password123", DisplayName: "x"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	login, err := svc.Login(ctx, LoginRequest{Email: "U1@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, login.User.ID)

	_, err = svc.Login(ctx, LoginRequest{Email: "u1@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_Authenticate(t *testing.T) {
	svc, _, _ := newTestService(t)
	resp := register(t, svc, "u@example.com")

	id, err := svc.Authenticate(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id)

	_, err = svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestService_SetBanned(t *testing.T) {
	svc, repo, hub := newTestService(t)
	ctx := context.Background()

	admin := register(t, svc, "admin@example.com")
	target := register(t, svc, "target@example.com")
	require.NoError(t, repo.(*repository).db.Model(&User{}).Where("id = ?", admin.User.ID).Update("is_admin", true).Error)

	// prime the ban cache
	banned, err := svc.IsBanned(ctx, target.User.ID)
	require.NoError(t, err)
	assert.False(t, banned)

	_, err = svc.SetBanned(ctx, target.User.ID, admin.User.ID, true)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "non admins cannot ban")

	_, err = svc.SetBanned(ctx, admin.User.ID, admin.User.ID, true)
	assert.ErrorIs(t, err, apperr.ErrValidation, "admins cannot ban themselves")

	updated, err := svc.SetBanned(ctx, admin.User.ID, target.User.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.IsBanned)

	_, err = svc.Authenticate(ctx, target.Token)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized, "cache is invalidated on ban")
	assert.Equal(t, []testutil.Eviction{{UserID: target.User.ID}}, hub.Evictions(), "open connections are closed")

	_, err = svc.Login(ctx, LoginRequest{Email: "target@example.com", Password: "password123"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.SetBanned(ctx, admin.User.ID, 9999, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.SetBanned(ctx, admin.User.ID, target.User.ID, false)
	require.NoError(t, err)
	assert.Len(t, hub.Evictions(), 1, "unbanning disconnects nobody")
}
