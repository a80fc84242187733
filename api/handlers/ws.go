package handlers

import (
	"log"
	"net/http"

	"clipcast/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	ws *services.WSConnManager
}

func NewWSHandler(ws *services.WSConnManager) *WSHandler {
	return &WSHandler{ws: ws}
}

// Notifications - WebSocket endpoint для live-уведомлений
func (h *WSHandler) Notifications(c *gin.Context) {
	viewerID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	userID := viewerID.(string)
	h.ws.Add(userID, conn)
	defer h.ws.Remove(userID, conn)

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
