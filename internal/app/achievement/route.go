package achievement

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	rg.GET("/achievements", handler.List)
	rg.GET("/users/me/achievements", handler.Mine)
}
