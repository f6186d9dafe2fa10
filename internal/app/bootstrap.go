package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/access"
	"taskboard/internal/app/achievement"
	"taskboard/internal/app/board"
	"taskboard/internal/app/chat"
	"taskboard/internal/app/health"
	"taskboard/internal/app/invitation"
	"taskboard/internal/app/item"
	"taskboard/internal/app/team"
	"taskboard/internal/app/user"
	"taskboard/internal/auth"
	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/db/seeder"
	"taskboard/internal/gateways/websocket"
	"taskboard/internal/metrics"
	"taskboard/internal/providers/minio"
	"taskboard/internal/providers/redis"
	"taskboard/internal/router"
	"taskboard/internal/utils"
)

type Application struct {
	Router *router.Router
	DB     *gorm.DB
	Redis  *redis.RedisProvider
}

// Close releases the connections opened by Bootstrap.
func (a *Application) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// Bootstrap wires the application. Background workers (hub, event bus,
// realtime bridge) run until ctx is cancelled.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	seed := seeder.NewSeeder(dbConn, logger)
	if err := seed.Seed(); err != nil {
		logger.Warn("Failed to run seeders", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)

	var objectStore item.ObjectStore
	minioProvider, err := minio.NewMinioProvider(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize MinIO provider, attachments are disabled", zap.Error(err))
	} else {
		objectStore = minioProvider
	}
	eventBus := utils.NewEventBus()

	userRepo := user.NewRepository(dbConn)
	boardRepo := board.NewRepository(dbConn)
	teamRepo := team.NewRepository(dbConn)
	itemRepo := item.NewRepository(dbConn)
	invitationRepo := invitation.NewRepository(dbConn)
	chatRepo := chat.NewRepository(dbConn)
	achievementRepo := achievement.NewRepository(dbConn)

	guard := access.NewGuard(access.NewResolver(logger, boardRepo, teamRepo))
	guard.CountDenials(m.AuthzDenied)

	hub := websocket.NewHub(logger, guard, m)
	bridge := websocket.NewBridge(redisProvider.Client, logger)
	if err := bridge.Attach(ctx, hub); err != nil {
		return nil, fmt.Errorf("failed to start realtime bridge: %w", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	userService := user.NewService(userRepo, jwtService, redisProvider, hub, logger)
	boardService := board.NewService(boardRepo, guard, hub, objectStore, redisProvider, eventBus, logger)
	teamService := team.NewService(teamRepo, guard, hub, logger)
	itemService := item.NewService(itemRepo, guard, hub, objectStore, eventBus, logger)
	invitationService := invitation.NewService(invitationRepo, guard, userService, hub, redisProvider, m, eventBus, cfg.InvitationTTL, logger)
	chatService := chat.NewService(chatRepo, guard, hub, eventBus, logger)
	achievementService := achievement.NewService(achievementRepo, hub, logger)

	achievementService.Subscribe(eventBus)
	hub.SetChatSender(chat.Sender{Service: chatService})

	go hub.Run(ctx)
	go eventBus.Run(ctx)

	checker := &utils.HealthChecker{
		DB:    dbConn,
		Redis: redisProvider.Client,
	}
	if minioProvider != nil {
		checker.Probes = append(checker.Probes, utils.Probe{Name: "MinIO", Check: minioProvider.Ping})
	}

	r := router.NewRouter(cfg.FrontendURL, userService, m, logger)

	r.RegisterHealthRoutes(health.NewHandler(health.NewService(checker)))
	r.RegisterMetricsRoute(m)
	r.RegisterSwaggerRoutes()
	r.RegisterWebSocketRoutes(hub, userService)
	r.RegisterUserRoutes(user.NewHandler(userService, logger))
	r.RegisterBoardRoutes(board.NewHandler(boardService, logger))
	r.RegisterTeamRoutes(team.NewHandler(teamService, logger))
	r.RegisterItemRoutes(item.NewHandler(itemService, logger))
	r.RegisterInvitationRoutes(invitation.NewHandler(invitationService, logger))
	r.RegisterChatRoutes(chat.NewHandler(chatService, logger))
	r.RegisterAchievementRoutes(achievement.NewHandler(achievementService, logger))

	return &Application{
		Router: r,
		DB:     dbConn,
		Redis:  redisProvider,
	}, nil
}
