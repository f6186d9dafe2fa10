package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/apperr"
	"taskboard/internal/auth"
	"taskboard/internal/providers/redis"
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Authenticate(ctx context.Context, token string) (uint64, error)
	GetByID(ctx context.Context, id uint64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	IsBanned(ctx context.Context, id uint64) (bool, error)
	SetBanned(ctx context.Context, actorID, targetID uint64, banned bool) (*User, error)
}

// Disconnector closes a user's realtime connections.
type Disconnector interface {
	Disconnect(ctx context.Context, userID uint64) error
}

type service struct {
	repo     Repository
	jwt      *auth.JWTService
	redisP   *redis.RedisProvider
	sessions Disconnector
	logger   *zap.SugaredLogger
}

// NewService builds the user service. sessions may be nil when there is no
// realtime hub to disconnect banned users from.
func NewService(repo Repository, jwt *auth.JWTService, redisP *redis.RedisProvider, sessions Disconnector, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		jwt:      jwt,
		redisP:   redisP,
		sessions: sessions,
		logger:   logger.Sugar(),
	}
}

// NormalizeEmail is the canonical form emails are stored and compared in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func bannedCacheKey(id uint64) string {
	return fmt.Sprintf("user:banned:%d", id)
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := NormalizeEmail(req.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	user := &User{
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if _, lookupErr := s.repo.GetByEmail(ctx, email); lookupErr == nil {
			return nil, apperr.Conflict("email is already registered")
		}
		return nil, apperr.Internal(fmt.Errorf("failed to create user: %w", err))
	}

	s.logger.Infow("User registered", "user_id", user.ID)
	return s.issue(user)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, apperr.Internal(err)
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if user.IsBanned {
		s.logger.Warnw("Login rejected: user is banned", "user_id", user.ID)
		return nil, apperr.Forbidden("account is banned")
	}

	return s.issue(user)
}

func (s *service) issue(user *User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to sign token: %w", err))
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// Authenticate validates an access token and checks the user is still active.
func (s *service) Authenticate(ctx context.Context, token string) (uint64, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return 0, apperr.Unauthorized(err.Error())
	}

	banned, err := s.IsBanned(ctx, claims.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return 0, apperr.Unauthorized("user no longer exists")
		}
		return 0, err
	}
	if banned {
		return 0, apperr.Unauthorized("account is banned")
	}
	return claims.UserID, nil
}

func (s *service) GetByID(ctx context.Context, id uint64) (*User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func (s *service) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

// IsBanned is read through the cache since it runs on every request.
func (s *service) IsBanned(ctx context.Context, id uint64) (bool, error) {
	key := bannedCacheKey(id)
	var banned bool
	if s.redisP.GetJSON(ctx, key, &banned) {
		return banned, nil
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	s.redisP.SetJSON(ctx, key, user.IsBanned, 0)
	return user.IsBanned, nil
}

func (s *service) SetBanned(ctx context.Context, actorID, targetID uint64, banned bool) (*User, error) {
	actor, err := s.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, apperr.Forbidden("only administrators can ban users")
	}
	if actorID == targetID {
		return nil, apperr.Validation("administrators cannot ban themselves", nil)
	}

	if err := s.repo.SetBanned(ctx, targetID, banned); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal(err)
	}
	s.redisP.Del(ctx, bannedCacheKey(targetID))
	if banned && s.sessions != nil {
		if err := s.sessions.Disconnect(ctx, targetID); err != nil {
			s.logger.Warnw("Failed to disconnect banned user", "user_id", targetID, "error", err)
		}
	}

	s.logger.Infow("User ban status changed", "actor_id", actorID, "user_id", targetID, "banned", banned)
	return s.GetByID(ctx, targetID)
}
