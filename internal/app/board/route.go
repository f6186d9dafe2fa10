package board

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	boards := rg.Group("/boards")
	{
		boards.POST("", handler.CreateBoard)
		boards.GET("", handler.ListBoards)
		boards.GET("/:boardId", handler.GetBoard)
		boards.PUT("/:boardId", handler.UpdateBoard)
		boards.DELETE("/:boardId", handler.DeleteBoard)
		boards.POST("/:boardId/columns", handler.CreateColumn)

		boards.GET("/:boardId/members", handler.ListMembers)
		boards.PUT("/:boardId/members/:userId", handler.UpdateMember)
		boards.DELETE("/:boardId/members/:userId", handler.RemoveMember)
	}

	columns := rg.Group("/columns")
	{
		columns.PUT("/:boardId/:columnId", handler.UpdateColumn)
		columns.DELETE("/:boardId/:columnId", handler.DeleteColumn)
	}
}
