package team

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskboard/internal/access"
)

type Repository interface {
	Create(ctx context.Context, team *Team) error
	GetByID(ctx context.Context, id uint64) (*Team, error)
	ListForUser(ctx context.Context, userID uint64) ([]*TeamSummary, error)
	Delete(ctx context.Context, id uint64) error

	MemberRole(ctx context.Context, teamID, userID uint64) (string, bool, error)
	OwnerID(ctx context.Context, teamID uint64) (uint64, bool, error)
	ListMembers(ctx context.Context, teamID uint64) ([]*TeamMember, error)
	GetMember(ctx context.Context, teamID, userID uint64) (*TeamMember, error)
	UpdateMemberRole(ctx context.Context, teamID, userID uint64, role string) error
	RemoveMember(ctx context.Context, teamID, userID uint64) error
	CountAdmins(ctx context.Context, teamID uint64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, team *Team) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		return tx.Create(&TeamMember{
			TeamID: team.ID,
			UserID: team.OwnerID,
			Role:   access.RoleAdmin.String(),
		}).Error
	})
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Team, error) {
	var team Team
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&team).Error
	return &team, err
}

func (r *repository) ListForUser(ctx context.Context, userID uint64) ([]*TeamSummary, error) {
	var teams []*TeamSummary
	err := r.db.WithContext(ctx).
		Table("teams").
		Select("teams.*, team_members.role AS role").
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", userID).
		Order("teams.id ASC").
		Scan(&teams).Error
	return teams, err
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM team_members WHERE team_id = ?",
			"DELETE FROM invitations WHERE entity_kind = 'team' AND entity_id = ?",
			"DELETE FROM chat_messages WHERE room_id IN (SELECT id FROM chat_rooms WHERE room_type = 'team' AND entity_id = ?)",
			"DELETE FROM chat_rooms WHERE room_type = 'team' AND entity_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&Team{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *repository) MemberRole(ctx context.Context, teamID, userID uint64) (string, bool, error) {
	var member TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return member.Role, true, nil
}

func (r *repository) OwnerID(ctx context.Context, teamID uint64) (uint64, bool, error) {
	var team Team
	err := r.db.WithContext(ctx).Select("id", "owner_id").Where("id = ?", teamID).First(&team).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return team.OwnerID, true, nil
}

func (r *repository) ListMembers(ctx context.Context, teamID uint64) ([]*TeamMember, error) {
	var members []*TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at ASC, user_id ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) GetMember(ctx context.Context, teamID, userID uint64) (*TeamMember, error) {
	var member TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&member).Error
	return &member, err
}

func (r *repository) UpdateMemberRole(ctx context.Context, teamID, userID uint64, role string) error {
	res := r.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, teamID, userID uint64) error {
	res := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&TeamMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountAdmins(ctx context.Context, teamID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&TeamMember{}).
		Where("team_id = ? AND role = ?", teamID, access.RoleAdmin.String()).
		Count(&count).Error
	return count, err
}
