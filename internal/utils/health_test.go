package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestHealthChecker_AllUp(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	checker := &HealthChecker{DB: db, Redis: client}
	status := checker.Check(context.Background())

	assert.Equal(t, StatusHealthy, status.Status)
	require.Len(t, status.Services, 2)
	assert.Equal(t, "up", status.Services[0].Status)
	assert.Equal(t, "up", status.Services[1].Status)
}

func TestHealthChecker_DegradedWhenProbeFails(t *testing.T) {
	checker := &HealthChecker{Probes: []Probe{{
		Name:  "ObjectStorage",
		Check: func(context.Context) error { return errors.New("bucket missing") },
	}}}

	status := checker.Check(context.Background())

	assert.Equal(t, StatusDegraded, status.Status)
	require.Len(t, status.Services, 1)
	assert.Equal(t, "down", status.Services[0].Status)
	assert.Equal(t, "bucket missing", status.Services[0].Message)
}
