// Package testutil provides database and cache fixtures for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskboard/internal/providers/redis"
)

// SetupTestDB opens an in-memory SQLite database migrated with models. The
// pool holds a single connection so the database lives as long as the test
// and concurrent transactions are serialised.
func SetupTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SetupRedis starts a miniredis server and a provider connected to it.
func SetupRedis(t *testing.T) (*redis.RedisProvider, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	provider := redis.NewRedisProvider("redis://"+mr.Addr(), zap.NewNop(), time.Minute)
	t.Cleanup(func() { _ = provider.Close() })
	return provider, mr
}
