package board

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskboard/internal/access"
)

type Repository interface {
	Create(ctx context.Context, board *Board) error
	GetByID(ctx context.Context, id uint64) (*Board, error)
	ListForUser(ctx context.Context, userID uint64) ([]*BoardSummary, error)
	Update(ctx context.Context, board *Board) error
	Delete(ctx context.Context, id uint64) ([]string, error)

	MemberRole(ctx context.Context, boardID, userID uint64) (string, bool, error)
	OwnerID(ctx context.Context, boardID uint64) (uint64, bool, error)
	ListMembers(ctx context.Context, boardID uint64) ([]*BoardMember, error)
	GetMember(ctx context.Context, boardID, userID uint64) (*BoardMember, error)
	UpdateMemberRole(ctx context.Context, boardID, userID uint64, role string) error
	RemoveMember(ctx context.Context, boardID, userID uint64) error
	CountAdmins(ctx context.Context, boardID uint64) (int64, error)

	CreateColumn(ctx context.Context, column *Column) error
	GetColumn(ctx context.Context, boardID, columnID uint64) (*Column, error)
	ListColumns(ctx context.Context, boardID uint64) ([]*Column, error)
	NextColumnPosition(ctx context.Context, boardID uint64) (int, error)
	UpdateColumn(ctx context.Context, column *Column) error
	DeleteColumn(ctx context.Context, columnID uint64) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create stores the board together with the owner's admin membership.
func (r *repository) Create(ctx context.Context, board *Board) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(board).Error; err != nil {
			return err
		}
		owner := &BoardMember{
			BoardID: board.ID,
			UserID:  board.OwnerID,
			Role:    access.RoleAdmin.String(),
		}
		return tx.Create(owner).Error
	})
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Board, error) {
	var board Board
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&board).Error
	return &board, err
}

func (r *repository) ListForUser(ctx context.Context, userID uint64) ([]*BoardSummary, error) {
	var boards []*BoardSummary
	err := r.db.WithContext(ctx).
		Table("boards").
		Select("boards.*, board_members.role AS role").
		Joins("JOIN board_members ON board_members.board_id = boards.id").
		Where("board_members.user_id = ?", userID).
		Order("boards.id ASC").
		Scan(&boards).Error
	return boards, err
}

func (r *repository) Update(ctx context.Context, board *Board) error {
	return r.db.WithContext(ctx).
		Model(board).
		Select("name", "is_public", "updated_at").
		Updates(board).Error
}

// Item ids on a board, used by the cascade below.
const boardItemIDs = `SELECT items.id FROM items JOIN board_columns ON board_columns.id = items.column_id WHERE board_columns.board_id = ?`

const columnItemIDs = `SELECT id FROM items WHERE column_id = ?`

// Delete removes the board and everything hanging off it in one transaction.
// It returns the storage object names of the deleted attachments.
func (r *repository) Delete(ctx context.Context, id uint64) ([]string, error) {
	var objects []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw("SELECT object_name FROM item_attachments WHERE item_id IN ("+boardItemIDs+")", id).
			Scan(&objects).Error; err != nil {
			return err
		}

		stmts := []struct {
			sql  string
			args []interface{}
		}{
			{"DELETE FROM subtasks WHERE item_id IN (" + boardItemIDs + ")", []interface{}{id}},
			{"DELETE FROM item_comments WHERE item_id IN (" + boardItemIDs + ")", []interface{}{id}},
			{"DELETE FROM item_attachments WHERE item_id IN (" + boardItemIDs + ")", []interface{}{id}},
			{"DELETE FROM item_dependencies WHERE from_item_id IN (" + boardItemIDs + ") OR to_item_id IN (" + boardItemIDs + ")", []interface{}{id, id}},
			{"DELETE FROM items WHERE column_id IN (SELECT id FROM board_columns WHERE board_id = ?)", []interface{}{id}},
			{"DELETE FROM board_columns WHERE board_id = ?", []interface{}{id}},
			{"DELETE FROM board_members WHERE board_id = ?", []interface{}{id}},
			{"DELETE FROM invitations WHERE entity_kind = 'board' AND entity_id = ?", []interface{}{id}},
			{"DELETE FROM chat_messages WHERE room_id IN (SELECT id FROM chat_rooms WHERE room_type = 'board' AND entity_id = ?)", []interface{}{id}},
			{"DELETE FROM chat_rooms WHERE room_type = 'board' AND entity_id = ?", []interface{}{id}},
		}
		for _, s := range stmts {
			if err := tx.Exec(s.sql, s.args...).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&Board{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return objects, err
}

func (r *repository) MemberRole(ctx context.Context, boardID, userID uint64) (string, bool, error) {
	var member BoardMember
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return member.Role, true, nil
}

func (r *repository) OwnerID(ctx context.Context, boardID uint64) (uint64, bool, error) {
	var board Board
	err := r.db.WithContext(ctx).Select("id", "owner_id").Where("id = ?", boardID).First(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return board.OwnerID, true, nil
}

func (r *repository) ListMembers(ctx context.Context, boardID uint64) ([]*BoardMember, error) {
	var members []*BoardMember
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at ASC, user_id ASC").
		Find(&members).Error
	return members, err
}

func (r *repository) GetMember(ctx context.Context, boardID, userID uint64) (*BoardMember, error) {
	var member BoardMember
	err := r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		First(&member).Error
	return &member, err
}

func (r *repository) UpdateMemberRole(ctx context.Context, boardID, userID uint64, role string) error {
	res := r.db.WithContext(ctx).Model(&BoardMember{}).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, boardID, userID uint64) error {
	res := r.db.WithContext(ctx).
		Where("board_id = ? AND user_id = ?", boardID, userID).
		Delete(&BoardMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountAdmins(ctx context.Context, boardID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&BoardMember{}).
		Where("board_id = ? AND role = ?", boardID, access.RoleAdmin.String()).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateColumn(ctx context.Context, column *Column) error {
	return r.db.WithContext(ctx).Create(column).Error
}

func (r *repository) GetColumn(ctx context.Context, boardID, columnID uint64) (*Column, error) {
	var column Column
	err := r.db.WithContext(ctx).
		Where("id = ? AND board_id = ?", columnID, boardID).
		First(&column).Error
	return &column, err
}

func (r *repository) ListColumns(ctx context.Context, boardID uint64) ([]*Column, error) {
	var columns []*Column
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("position ASC, id ASC").
		Find(&columns).Error
	return columns, err
}

func (r *repository) NextColumnPosition(ctx context.Context, boardID uint64) (int, error) {
	var next int
	err := r.db.WithContext(ctx).Model(&Column{}).
		Select("COALESCE(MAX(position) + 1, 0)").
		Where("board_id = ?", boardID).
		Scan(&next).Error
	return next, err
}

func (r *repository) UpdateColumn(ctx context.Context, column *Column) error {
	return r.db.WithContext(ctx).
		Model(column).
		Select("title", "position", "updated_at").
		Updates(column).Error
}

func (r *repository) DeleteColumn(ctx context.Context, columnID uint64) ([]string, error) {
	var objects []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw("SELECT object_name FROM item_attachments WHERE item_id IN ("+columnItemIDs+")", columnID).
			Scan(&objects).Error; err != nil {
			return err
		}

		stmts := []struct {
			sql  string
			args []interface{}
		}{
			{"DELETE FROM subtasks WHERE item_id IN (" + columnItemIDs + ")", []interface{}{columnID}},
			{"DELETE FROM item_comments WHERE item_id IN (" + columnItemIDs + ")", []interface{}{columnID}},
			{"DELETE FROM item_attachments WHERE item_id IN (" + columnItemIDs + ")", []interface{}{columnID}},
			{"DELETE FROM item_dependencies WHERE from_item_id IN (" + columnItemIDs + ") OR to_item_id IN (" + columnItemIDs + ")", []interface{}{columnID, columnID}},
			{"DELETE FROM items WHERE column_id = ?", []interface{}{columnID}},
		}
		for _, s := range stmts {
			if err := tx.Exec(s.sql, s.args...).Error; err != nil {
				return err
			}
		}

		res := tx.Delete(&Column{}, columnID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return objects, err
}
