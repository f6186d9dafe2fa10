package invitation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/app/board"
	"taskboard/internal/app/team"
)

// errAlreadyAccepted is returned from inside the accept transaction when the
// compare-and-swap finds the invitation already taken.
var errAlreadyAccepted = errors.New("invitation already accepted")

type Repository interface {
	Create(ctx context.Context, inv *Invitation) error
	GetByID(ctx context.Context, id uint64) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	ListPendingByEmail(ctx context.Context, email string, since time.Time) ([]*Invitation, error)
	ListPendingForEntity(ctx context.Context, kind access.EntityKind, entityID uint64) ([]*Invitation, error)
	DeletePending(ctx context.Context, id uint64) error
	Accept(ctx context.Context, token string, userID uint64, now time.Time) (*Membership, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, inv *Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error
	return &inv, err
}

func (r *repository) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	var inv Invitation
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error
	return &inv, err
}

func (r *repository) ListPendingByEmail(ctx context.Context, email string, since time.Time) ([]*Invitation, error) {
	var invs []*Invitation
	err := r.db.WithContext(ctx).
		Where("email = ? AND accepted = ? AND created_at > ?", email, false, since).
		Order("created_at DESC, id DESC").
		Find(&invs).Error
	return invs, err
}

func (r *repository) ListPendingForEntity(ctx context.Context, kind access.EntityKind, entityID uint64) ([]*Invitation, error) {
	var invs []*Invitation
	err := r.db.WithContext(ctx).
		Where("entity_kind = ? AND entity_id = ? AND accepted = ?", string(kind), entityID, false).
		Order("created_at DESC, id DESC").
		Find(&invs).Error
	return invs, err
}

func (r *repository) DeletePending(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND accepted = ?", id, false).Delete(&Invitation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Accept flips the accepted flag with a compare-and-swap and writes the
// membership in the same transaction. Of concurrent calls for one token only
// the first commits; the rest get errAlreadyAccepted.
func (r *repository) Accept(ctx context.Context, token string, userID uint64, now time.Time) (*Membership, error) {
	var membership *Membership
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Invitation{}).
			Where("token = ? AND accepted = ?", token, false).
			Updates(map[string]interface{}{
				"accepted":    true,
				"accepted_by": userID,
				"accepted_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&Invitation{}).Where("token = ?", token).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return errAlreadyAccepted
		}

		var inv Invitation
		if err := tx.Where("token = ?", token).First(&inv).Error; err != nil {
			return err
		}
		kind, ok := access.ParseEntityKind(inv.EntityKind)
		if !ok {
			return errors.New("invitation has an unknown entity kind: " + inv.EntityKind)
		}
		proposed, ok := access.ParseRole(inv.Role)
		if !ok {
			return errors.New("invitation has an unknown role: " + inv.Role)
		}

		role, err := grantRole(tx, kind, inv.EntityID, userID, proposed)
		if err != nil {
			return err
		}
		membership = &Membership{EntityKind: kind, EntityID: inv.EntityID, UserID: userID, Role: role}
		return nil
	})
	return membership, err
}

// grantRole creates the membership, or raises an existing one to proposed.
// Existing roles are never lowered.
func grantRole(tx *gorm.DB, kind access.EntityKind, entityID, userID uint64, proposed access.Role) (access.Role, error) {
	var (
		model   interface{}
		where   string
		current string
	)
	switch kind {
	case access.KindBoard:
		var m board.BoardMember
		err := tx.Where("board_id = ? AND user_id = ?", entityID, userID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return proposed, tx.Create(&board.BoardMember{BoardID: entityID, UserID: userID, Role: proposed.String()}).Error
		}
		if err != nil {
			return access.RoleNone, err
		}
		model, where, current = &board.BoardMember{}, "board_id = ? AND user_id = ?", m.Role
	case access.KindTeam:
		var m team.TeamMember
		err := tx.Where("team_id = ? AND user_id = ?", entityID, userID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return proposed, tx.Create(&team.TeamMember{TeamID: entityID, UserID: userID, Role: proposed.String()}).Error
		}
		if err != nil {
			return access.RoleNone, err
		}
		model, where, current = &team.TeamMember{}, "team_id = ? AND user_id = ?", m.Role
	default:
		return access.RoleNone, errors.New("unsupported entity kind")
	}

	existing, _ := access.ParseRole(current)
	if existing.AtLeast(proposed) {
		return existing, nil
	}
	if err := tx.Model(model).Where(where, entityID, userID).Update("role", proposed.String()).Error; err != nil {
		return access.RoleNone, err
	}
	return proposed, nil
}
