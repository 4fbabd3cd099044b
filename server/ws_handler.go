package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebsocket upgrades the connection and registers it with the hub. The
// token has already been validated by Authorize (via the access_token query
// parameter, since browsers cannot set headers on websocket upgrades).
func (s *Server) handleWebsocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.Logger.Warnf("websocket upgrade failed: %v", err)
			return
		}

		client := &wsClient{
			ID:   uuid.NewString(),
			UID:  c.GetString("userID"),
			Conn: conn,
			Send: make(chan []byte, sendBufferSize),
		}
		s.Hub.register <- client

		go s.Hub.writePump(client)
		go s.Hub.readPump(client)
	}
}
