package achievement

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	List(ctx context.Context) ([]*Achievement, error)
	ListByEvent(ctx context.Context, event string) ([]*Achievement, error)
	ListForUser(ctx context.Context, userID uint64) ([]*UserProgress, error)
	Advance(ctx context.Context, userID uint64, a *Achievement, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]*Achievement, error) {
	var out []*Achievement
	err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *repository) ListByEvent(ctx context.Context, event string) ([]*Achievement, error) {
	var out []*Achievement
	err := r.db.WithContext(ctx).Where("event = ?", event).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *repository) ListForUser(ctx context.Context, userID uint64) ([]*UserProgress, error) {
	var rows []struct {
		Achievement
		Progress   int
		UnlockedAt *time.Time
	}
	err := r.db.WithContext(ctx).
		Table("achievements").
		Select("achievements.*, COALESCE(user_achievements.progress, 0) AS progress, user_achievements.unlocked_at").
		Joins("LEFT JOIN user_achievements ON user_achievements.achievement_id = achievements.id AND user_achievements.user_id = ?", userID).
		Order("achievements.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*UserProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, &UserProgress{
			Achievement: row.Achievement,
			Progress:    row.Progress,
			Unlocked:    row.UnlockedAt != nil,
			UnlockedAt:  row.UnlockedAt,
		})
	}
	return out, nil
}

// Advance adds one step of progress and reports whether this step unlocked
// the achievement. Unlocked achievements stop counting.
func (r *repository) Advance(ctx context.Context, userID uint64, a *Achievement, now time.Time) (bool, error) {
	unlocked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &UserAchievement{UserID: userID, AchievementID: a.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND achievement_id = ?", userID, a.ID).First(row).Error; err != nil {
			return err
		}
		if row.UnlockedAt != nil {
			return nil
		}

		updates := map[string]interface{}{"progress": row.Progress + 1}
		if row.Progress+1 >= a.Threshold {
			updates["unlocked_at"] = now
			unlocked = true
		}
		return tx.Model(&UserAchievement{}).
			Where("user_id = ? AND achievement_id = ? AND unlocked_at IS NULL", userID, a.ID).
			Updates(updates).Error
	})
	return unlocked, err
}
