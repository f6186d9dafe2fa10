package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	StatusHealthy  = "healthy"
	StatusDegraded = "degraded"
)

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  []Service `json:"services"`
}

type Service struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Probe is an additional dependency check, e.g. object storage.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthChecker struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Probes []Probe
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	var services []Service
	overallStatus := StatusHealthy

	run := func(name string, check func(ctx context.Context) error) {
		service := Service{Name: name}
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			service.Status = "down"
			service.Message = err.Error()
			overallStatus = StatusDegraded
		} else {
			service.Status = "up"
		}
		services = append(services, service)
	}

	if h.DB != nil {
		run("PostgreSQL", func(ctx context.Context) error {
			sqlDB, err := h.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}

	if h.Redis != nil {
		run("Redis", func(ctx context.Context) error {
			return h.Redis.Ping(ctx).Err()
		})
	}

	for _, p := range h.Probes {
		run(p.Name, p.Check)
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
}
