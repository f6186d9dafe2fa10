package team

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	teams := rg.Group("/teams")
	{
		teams.POST("", handler.CreateTeam)
		teams.GET("", handler.ListTeams)
		teams.GET("/:teamId", handler.GetTeam)
		teams.DELETE("/:teamId", handler.DeleteTeam)
		teams.GET("/:teamId/members", handler.ListMembers)
		teams.PUT("/:teamId/members/:userId", handler.UpdateMember)
		teams.DELETE("/:teamId/members/:userId", handler.RemoveMember)
	}
}
