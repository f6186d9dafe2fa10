package item

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskboard/internal/app/board"
)

type Repository interface {
	ColumnBoardID(ctx context.Context, columnID uint64) (uint64, error)
	BoardIsPublic(ctx context.Context, boardID uint64) (bool, error)

	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, id uint64) (*Item, error)
	ListByBoard(ctx context.Context, boardID uint64) ([]*Item, error)
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, id uint64) error
	Move(ctx context.Context, itemID, toColumnID uint64, index int) (*Item, error)

	CreateSubtask(ctx context.Context, subtask *Subtask) error
	GetSubtask(ctx context.Context, id uint64) (*Subtask, error)
	UpdateSubtask(ctx context.Context, subtask *Subtask) error
	ListSubtasks(ctx context.Context, itemID uint64) ([]*Subtask, error)

	CreateComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, itemID uint64) ([]*Comment, error)

	CreateDependency(ctx context.Context, dep *Dependency) error
	GetDependency(ctx context.Context, id uint64) (*Dependency, error)
	DeleteDependency(ctx context.Context, id uint64) error
	ListDependencies(ctx context.Context, itemID uint64) ([]*Dependency, error)
	HasPath(ctx context.Context, fromItemID, toItemID uint64) (bool, error)

	CreateAttachment(ctx context.Context, attachment *Attachment) error
	GetAttachment(ctx context.Context, id uint64) (*Attachment, error)
	DeleteAttachment(ctx context.Context, id uint64) error
	ListAttachments(ctx context.Context, itemID uint64) ([]*Attachment, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ColumnBoardID(ctx context.Context, columnID uint64) (uint64, error) {
	var column board.Column
	err := r.db.WithContext(ctx).Select("id", "board_id").Where("id = ?", columnID).First(&column).Error
	return column.BoardID, err
}

func (r *repository) BoardIsPublic(ctx context.Context, boardID uint64) (bool, error) {
	var b board.Board
	err := r.db.WithContext(ctx).Select("id", "is_public").Where("id = ?", boardID).First(&b).Error
	return b.IsPublic, err
}

// Create appends the item at the end of its column.
func (r *repository) Create(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Item{}).Where("column_id = ?", item.ColumnID).Count(&count).Error; err != nil {
			return err
		}
		item.Position = int(count)
		return tx.Create(item).Error
	})
}

func (r *repository) GetByID(ctx context.Context, id uint64) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	return &item, err
}

func (r *repository) ListByBoard(ctx context.Context, boardID uint64) ([]*Item, error) {
	var items []*Item
	err := r.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("column_id ASC, position ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) Update(ctx context.Context, item *Item) error {
	return r.db.WithContext(ctx).
		Model(item).
		Select("title", "description", "assignee_id", "due_date", "completed", "updated_at").
		Updates(item).Error
}

func (r *repository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item Item
		if err := tx.Where("id = ?", id).First(&item).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&Subtask{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("from_item_id = ? OR to_item_id = ?", id, id).Delete(&Dependency{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&Item{}, id).Error; err != nil {
			return err
		}
		return renumber(tx, item.ColumnID)
	})
}

// Move places the item at index in the target column, clamping index to the
// column length, and renumbers both columns to contiguous positions.
func (r *repository) Move(ctx context.Context, itemID, toColumnID uint64, index int) (*Item, error) {
	var moved Item
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", itemID).First(&moved).Error; err != nil {
			return err
		}
		fromColumnID := moved.ColumnID

		var siblings []*Item
		if err := tx.Select("id").
			Where("column_id = ? AND id <> ?", toColumnID, itemID).
			Order("position ASC, id ASC").
			Find(&siblings).Error; err != nil {
			return err
		}
		if index < 0 || index > len(siblings) {
			index = len(siblings)
		}

		ordered := make([]uint64, 0, len(siblings)+1)
		for _, s := range siblings[:index] {
			ordered = append(ordered, s.ID)
		}
		ordered = append(ordered, itemID)
		for _, s := range siblings[index:] {
			ordered = append(ordered, s.ID)
		}

		for pos, id := range ordered {
			if err := tx.Model(&Item{}).Where("id = ?", id).Updates(map[string]interface{}{
				"column_id": toColumnID,
				"position":  pos,
			}).Error; err != nil {
				return err
			}
		}
		moved.ColumnID = toColumnID
		moved.Position = index

		if fromColumnID != toColumnID {
			return renumber(tx, fromColumnID)
		}
		return nil
	})
	return &moved, err
}

func renumber(tx *gorm.DB, columnID uint64) error {
	var ids []uint64
	if err := tx.Model(&Item{}).
		Where("column_id = ?", columnID).
		Order("position ASC, id ASC").
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	for pos, id := range ids {
		if err := tx.Model(&Item{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) CreateSubtask(ctx context.Context, subtask *Subtask) error {
	return r.db.WithContext(ctx).Create(subtask).Error
}

func (r *repository) GetSubtask(ctx context.Context, id uint64) (*Subtask, error) {
	var subtask Subtask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&subtask).Error
	return &subtask, err
}

func (r *repository) UpdateSubtask(ctx context.Context, subtask *Subtask) error {
	return r.db.WithContext(ctx).
		Model(subtask).
		Select("title", "completed", "updated_at").
		Updates(subtask).Error
}

func (r *repository) ListSubtasks(ctx context.Context, itemID uint64) ([]*Subtask, error) {
	var subtasks []*Subtask
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&subtasks).Error
	return subtasks, err
}

func (r *repository) CreateComment(ctx context.Context, comment *Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *repository) ListComments(ctx context.Context, itemID uint64) ([]*Comment, error) {
	var comments []*Comment
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *repository) CreateDependency(ctx context.Context, dep *Dependency) error {
	return r.db.WithContext(ctx).Create(dep).Error
}

func (r *repository) GetDependency(ctx context.Context, id uint64) (*Dependency, error) {
	var dep Dependency
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dep).Error
	return &dep, err
}

func (r *repository) DeleteDependency(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&Dependency{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListDependencies(ctx context.Context, itemID uint64) ([]*Dependency, error) {
	var deps []*Dependency
	err := r.db.WithContext(ctx).
		Where("from_item_id = ? OR to_item_id = ?", itemID, itemID).
		Order("id ASC").
		Find(&deps).Error
	return deps, err
}

// HasPath reports whether toItemID is reachable from fromItemID by
// following dependency edges.
func (r *repository) HasPath(ctx context.Context, fromItemID, toItemID uint64) (bool, error) {
	if fromItemID == toItemID {
		return true, nil
	}

	visited := map[uint64]bool{fromItemID: true}
	frontier := []uint64{fromItemID}
	for len(frontier) > 0 {
		var next []uint64
		if err := r.db.WithContext(ctx).Model(&Dependency{}).
			Where("from_item_id IN ?", frontier).
			Distinct().
			Pluck("to_item_id", &next).Error; err != nil {
			return false, err
		}

		frontier = frontier[:0]
		for _, id := range next {
			if id == toItemID {
				return true, nil
			}
			if !visited[id] {
				visited[id] = true
				frontier = append(frontier, id)
			}
		}
	}
	return false, nil
}

func (r *repository) CreateAttachment(ctx context.Context, attachment *Attachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *repository) GetAttachment(ctx context.Context, id uint64) (*Attachment, error) {
	var attachment Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error
	return &attachment, err
}

func (r *repository) DeleteAttachment(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&Attachment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListAttachments(ctx context.Context, itemID uint64) ([]*Attachment, error) {
	var attachments []*Attachment
	err := r.db.WithContext(ctx).Where("item_id = ?", itemID).Order("id ASC").Find(&attachments).Error
	return attachments, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
