package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Authenticator turns an access token into the id of an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// @Summary Realtime connection
// @Description Upgrades to a WebSocket. Clients send join, leave and send actions and receive room frames
// @Tags Realtime
// @Param access_token query string false "JWT, when no Authorization header is sent"
// @Success 101
// @Router /ws [get]
func (h *Hub) ServeWS(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("access_token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			h.logger.Warnw("WebSocket connection rejected: token missing",
				"client_ip", c.ClientIP(),
				"user_agent", c.GetHeader("User-Agent"),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "access token is required", "status": http.StatusUnauthorized})
			return
		}

		userID, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.logger.Warnw("WebSocket connection rejected: invalid token",
				"client_ip", c.ClientIP(),
				"error", err,
			)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "unauthorized", "status": http.StatusUnauthorized})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Errorw("Failed to upgrade connection",
				"user_id", userID,
				"error", err,
			)
			return
		}

		client := NewClient(h, conn, userID)
		h.logger.Infow("WebSocket connection established",
			"client_id", client.ID,
			"user_id", client.UserID,
			"client_ip", c.ClientIP(),
			"user_agent", c.GetHeader("User-Agent"),
		)

		h.Register(client)
		go client.writePump()

		// The request context is cancelled once the handler returns, so the
		// read loop gets its own.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		client.readPump(ctx)
		h.Unregister(client)
	}
}
