package user

import "github.com/gin-gonic/gin"

func RegisterPublicRoutes(rg *gin.RouterGroup, handler Handler) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", handler.Register)
		authGroup.POST("/login", handler.Login)
	}
}

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	rg.GET("/users/me", handler.Me)
	rg.PATCH("/admin/users/:id/ban", handler.SetBanned)
}
