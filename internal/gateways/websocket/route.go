package websocket

import "github.com/gin-gonic/gin"

func RegisterRoutes(rg gin.IRoutes, hub *Hub, auth Authenticator) {
	rg.GET("/ws", hub.ServeWS(auth))
}
