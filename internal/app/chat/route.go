package chat

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	chat := rg.Group("/chat/:kind/:id")
	{
		chat.GET("/messages", handler.ListMessages)
		chat.POST("/messages", handler.SendMessage)
	}
}
