package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskboard/internal/app/achievement"
	"taskboard/internal/app/board"
	"taskboard/internal/app/chat"
	"taskboard/internal/app/invitation"
	"taskboard/internal/app/item"
	"taskboard/internal/app/team"
	"taskboard/internal/app/user"
	"taskboard/internal/config"
)

func Connect(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.IsProduction() {
		level = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
	)

	return db, nil
}

// Models lists every persisted type in migration order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&board.Board{},
		&board.BoardMember{},
		&board.Column{},
		&team.Team{},
		&team.TeamMember{},
		&item.Item{},
		&item.Subtask{},
		&item.Comment{},
		&item.Dependency{},
		&item.Attachment{},
		&invitation.Invitation{},
		&chat.Room{},
		&chat.Message{},
		&achievement.Achievement{},
		&achievement.UserAchievement{},
	}
}

func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		logger.Error("Database migration failed", zap.Error(err))
		return err
	}
	logger.Info("Database migrated", zap.Int("models", len(Models())))
	return nil
}
