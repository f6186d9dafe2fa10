package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"taskboard/internal/app/achievement"
	"taskboard/internal/app/board"
	"taskboard/internal/app/chat"
	"taskboard/internal/app/health"
	"taskboard/internal/app/invitation"
	"taskboard/internal/app/item"
	"taskboard/internal/app/team"
	"taskboard/internal/app/user"
	"taskboard/internal/gateways/websocket"
	"taskboard/internal/metrics"
	"taskboard/internal/middleware"
)

type Router struct {
	Engine *gin.Engine
	// api requires a bearer token.
	api    *gin.RouterGroup
	public *gin.RouterGroup
}

func NewRouter(frontendURL string, authn middleware.Authenticator, m *metrics.Metrics, logger *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(middleware.CORSMiddleware(frontendURL))
	engine.Use(middleware.LoggerMiddleware(logger))
	engine.Use(middleware.MetricsMiddleware(m))
	engine.Use(gin.Recovery())

	return &Router{
		Engine: engine,
		api:    engine.Group("/api", middleware.Auth(authn, logger)),
		public: engine.Group("/api"),
	}
}

func (r *Router) RegisterHealthRoutes(handler health.Handler) {
	health.RegisterRoutes(r.public, handler)
}

func (r *Router) RegisterMetricsRoute(m *metrics.Metrics) {
	r.Engine.GET("/metrics", gin.WrapH(m.Handler()))
}

func (r *Router) RegisterSwaggerRoutes() {
	r.Engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (r *Router) RegisterWebSocketRoutes(hub *websocket.Hub, authn websocket.Authenticator) {
	websocket.RegisterRoutes(r.Engine, hub, authn)
}

func (r *Router) RegisterUserRoutes(handler user.Handler) {
	user.RegisterPublicRoutes(r.public, handler)
	user.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterBoardRoutes(handler board.Handler) {
	board.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterTeamRoutes(handler team.Handler) {
	team.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterItemRoutes(handler item.Handler) {
	item.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterInvitationRoutes(handler invitation.Handler) {
	invitation.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterChatRoutes(handler chat.Handler) {
	chat.RegisterRoutes(r.api, handler)
}

func (r *Router) RegisterAchievementRoutes(handler achievement.Handler) {
	achievement.RegisterRoutes(r.api, handler)
}
