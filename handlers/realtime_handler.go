package handlers

import (
	"net/http"

	"github.com/EzzalddeenAli/recticket/logger"
	"github.com/EzzalddeenAli/recticket/realtime"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RealtimeHandler GET /ws
type RealtimeHandler struct {
	hub    *realtime.Hub
	buffer int
}

func NewRealtimeHandler(hub *realtime.Hub, clientBuffer int) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, buffer: clientBuffer}
}

// HandleWebSocket 阻塞直到连接关闭
func (h *RealtimeHandler) HandleWebSocket(c echo.Context) error {
	user := currentUser(c)
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.WithContext(c.Request().Context()).WithError(err).Warn("websocket upgrade failed")
		return nil
	}
	client := realtime.NewClient(ws, user.ID, user.Name, h.buffer)
	logger.WithContext(c.Request().Context()).WithField("client_id", client.ID).Debug("websocket connected")
	client.Serve(h.hub)
	return nil
}
