package chat

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/access"
)

type Repository interface {
	GetOrCreateRoom(ctx context.Context, kind access.EntityKind, entityID uint64) (*Room, error)
	FindRoom(ctx context.Context, kind access.EntityKind, entityID uint64) (*Room, error)
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, roomID, before uint64, limit int) ([]*Message, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetOrCreateRoom is safe against concurrent first use: the unique index
// lets exactly one insert through and everyone reads that row.
func (r *repository) GetOrCreateRoom(ctx context.Context, kind access.EntityKind, entityID uint64) (*Room, error) {
	room := &Room{RoomType: string(kind), EntityID: entityID}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(room).Error; err != nil {
		return nil, err
	}
	return r.FindRoom(ctx, kind, entityID)
}

func (r *repository) FindRoom(ctx context.Context, kind access.EntityKind, entityID uint64) (*Room, error) {
	var room Room
	err := r.db.WithContext(ctx).
		Where("room_type = ? AND entity_id = ?", string(kind), entityID).
		First(&room).Error
	return &room, err
}

func (r *repository) CreateMessage(ctx context.Context, msg *Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListMessages returns up to limit messages older than the before id (all
// when before is 0), oldest first.
func (r *repository) ListMessages(ctx context.Context, roomID, before uint64, limit int) ([]*Message, error) {
	query := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if before > 0 {
		query = query.Where("id < ?", before)
	}

	var msgs []*Message
	if err := query.Order("sent_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
