package seeder

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"taskboard/internal/app/achievement"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedAchievements(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

// seedAchievements installs the catalog and refreshes existing entries by
// code, so rewording an achievement does not need a migration.
func (s *Seeder) seedAchievements() error {
	catalog := append([]achievement.Achievement(nil), achievement.Catalog...)

	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "event", "threshold"}),
	}).Create(&catalog).Error
	if err != nil {
		return err
	}

	s.logger.Info("Seeded achievements", zap.Int("count", len(catalog)))
	return nil
}
