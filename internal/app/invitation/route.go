package invitation

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg *gin.RouterGroup, handler Handler) {
	rg.POST("/board-invitations", handler.CreateBoardInvitation)
	rg.POST("/board-invitations/accept", handler.AcceptBoardInvitation)
	rg.POST("/team-invitations", handler.CreateTeamInvitation)
	rg.POST("/team-invitations/accept", handler.AcceptTeamInvitation)

	rg.GET("/invitations", handler.ListMine)
	rg.DELETE("/invitations/:id", handler.Revoke)
	rg.GET("/boards/:boardId/invitations", handler.ListForBoard)
	rg.GET("/teams/:teamId/invitations", handler.ListForTeam)
}
