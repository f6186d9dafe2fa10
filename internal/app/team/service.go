package team

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/apperr"
)

const (
	EventTeamDeleted   = "TeamDeleted"
	EventMemberUpdated = "MemberUpdated"
	EventMemberRemoved = "MemberRemoved"
)

type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, data interface{}) error
	Evict(ctx context.Context, userID uint64, room string) error
	EvictRoom(ctx context.Context, room string) error
}

type Service interface {
	CreateTeam(ctx context.Context, userID uint64, req CreateTeamRequest) (*Team, error)
	ListTeams(ctx context.Context, userID uint64) ([]*TeamSummary, error)
	GetTeam(ctx context.Context, userID, teamID uint64) (*Team, error)
	DeleteTeam(ctx context.Context, userID, teamID uint64) error
	ListMembers(ctx context.Context, userID, teamID uint64) ([]*TeamMember, error)
	UpdateMemberRole(ctx context.Context, userID, teamID, targetID uint64, role access.Role) (*TeamMember, error)
	RemoveMember(ctx context.Context, userID, teamID, targetID uint64) error
}

type service struct {
	repo   Repository
	guard  *access.Guard
	hub    Broadcaster
	logger *zap.SugaredLogger
}

func NewService(repo Repository, guard *access.Guard, hub Broadcaster, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		guard:  guard,
		hub:    hub,
		logger: logger.Sugar(),
	}
}

func (s *service) broadcast(ctx context.Context, room, event string, data interface{}) {
	if err := s.hub.Broadcast(ctx, room, event, data); err != nil {
		s.logger.Warnw("Failed to broadcast team event", "room", room, "event", event, "error", err)
	}
}

func (s *service) CreateTeam(ctx context.Context, userID uint64, req CreateTeamRequest) (*Team, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("invalid team", map[string]string{"name": "name is required"})
	}

	team := &Team{Name: name, OwnerID: userID}
	if err := s.repo.Create(ctx, team); err != nil {
		return nil, apperr.Internal(fmt.Errorf("failed to create team: %w", err))
	}
	s.logger.Infow("Team created", "team_id", team.ID, "owner_id", userID)
	return team, nil
}

func (s *service) ListTeams(ctx context.Context, userID uint64) ([]*TeamSummary, error) {
	teams, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if teams == nil {
		teams = []*TeamSummary{}
	}
	return teams, nil
}

func (s *service) getTeam(ctx context.Context, teamID uint64) (*Team, error) {
	team, err := s.repo.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("team")
		}
		return nil, apperr.Internal(err)
	}
	return team, nil
}

func (s *service) GetTeam(ctx context.Context, userID, teamID uint64) (*Team, error) {
	if _, err := s.guard.Require(ctx, userID, teamID, access.KindTeam, access.Any...); err != nil {
		return nil, err
	}
	return s.getTeam(ctx, teamID)
}

func (s *service) DeleteTeam(ctx context.Context, userID, teamID uint64) error {
	if _, err := s.guard.Require(ctx, userID, teamID, access.KindTeam, access.RoleAdmin); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, teamID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("team")
		}
		return apperr.Internal(fmt.Errorf("failed to delete team: %w", err))
	}
	room := access.Room(access.KindTeam, teamID)
	s.broadcast(ctx, room, EventTeamDeleted, map[string]interface{}{"id": teamID})
	if err := s.hub.EvictRoom(ctx, room); err != nil {
		s.logger.Warnw("Failed to close team room", "team_id", teamID, "error", err)
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, userID, teamID uint64) ([]*TeamMember, error) {
	if _, err := s.guard.Require(ctx, userID, teamID, access.KindTeam, access.Any...); err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return members, nil
}

func (s *service) getMember(ctx context.Context, teamID, userID uint64) (*TeamMember, error) {
	member, err := s.repo.GetMember(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("member")
		}
		return nil, apperr.Internal(err)
	}
	return member, nil
}

func (s *service) checkNotLastAdmin(ctx context.Context, teamID uint64, member *TeamMember) error {
	if role, _ := access.ParseRole(member.Role); role != access.RoleAdmin {
		return nil
	}
	admins, err := s.repo.CountAdmins(ctx, teamID)
	if err != nil {
		return apperr.Internal(err)
	}
	if admins <= 1 {
		return apperr.Validation("a team must keep at least one admin", nil)
	}
	return nil
}

func (s *service) UpdateMemberRole(ctx context.Context, userID, teamID, targetID uint64, role access.Role) (*TeamMember, error) {
	if _, err := s.guard.Require(ctx, userID, teamID, access.KindTeam, access.RoleAdmin); err != nil {
		return nil, err
	}
	if role == access.RoleNone {
		return nil, apperr.Validation("invalid role", map[string]string{"role": "must be one of admin editor viewer"})
	}
	if targetID == userID {
		return nil, apperr.Forbidden("you cannot change your own role")
	}

	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID == targetID {
		return nil, apperr.Validation("the team owner's role cannot be changed", nil)
	}
	member, err := s.getMember(ctx, teamID, targetID)
	if err != nil {
		return nil, err
	}
	if role != access.RoleAdmin {
		if err := s.checkNotLastAdmin(ctx, teamID, member); err != nil {
			return nil, err
		}
	}

	if err := s.repo.UpdateMemberRole(ctx, teamID, targetID, role.String()); err != nil {
		return nil, apperr.Internal(err)
	}
	member.Role = role.String()
	s.broadcast(ctx, access.Room(access.KindTeam, teamID), EventMemberUpdated, member)
	return member, nil
}

func (s *service) RemoveMember(ctx context.Context, userID, teamID, targetID uint64) error {
	allowed := []access.Role{access.RoleAdmin}
	if targetID == userID {
		allowed = access.Any
	}
	if _, err := s.guard.Require(ctx, userID, teamID, access.KindTeam, allowed...); err != nil {
		return err
	}

	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team.OwnerID == targetID {
		return apperr.Validation("the team owner cannot be removed", nil)
	}
	member, err := s.getMember(ctx, teamID, targetID)
	if err != nil {
		return err
	}
	if err := s.checkNotLastAdmin(ctx, teamID, member); err != nil {
		return err
	}

	if err := s.repo.RemoveMember(ctx, teamID, targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("member")
		}
		return apperr.Internal(err)
	}

	room := access.Room(access.KindTeam, teamID)
	payload := map[string]interface{}{"teamId": teamID, "userId": targetID}
	s.broadcast(ctx, room, EventMemberRemoved, payload)
	s.broadcast(ctx, access.UserRoom(targetID), EventMemberRemoved, payload)
	if err := s.hub.Evict(ctx, targetID, room); err != nil {
		s.logger.Warnw("Failed to evict removed member", "team_id", teamID, "user_id", targetID, "error", err)
	}
	return nil
}
