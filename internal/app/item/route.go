package item

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	rg.POST("/columns/:boardId/:columnId/items", handler.CreateItem)
	rg.GET("/boards/:boardId/items", handler.ListItems)

	items := rg.Group("/items")
	{
		items.POST("/move", handler.MoveItem)
		items.GET("/:itemId", handler.GetItem)
		items.PUT("/:itemId", handler.UpdateItem)
		items.DELETE("/:itemId", handler.DeleteItem)
		items.POST("/:itemId/subtasks", handler.CreateSubtask)
		items.POST("/:itemId/comments", handler.CreateComment)
		items.GET("/:itemId/comments", handler.ListComments)
		items.POST("/:itemId/dependencies", handler.CreateDependency)
		items.POST("/:itemId/attachments", handler.UploadAttachment)
	}

	rg.PATCH("/subtasks/:subtaskId", handler.UpdateSubtask)
	rg.DELETE("/dependencies/:dependencyId", handler.DeleteDependency)
	rg.DELETE("/attachments/:attachmentId", handler.DeleteAttachment)
}
