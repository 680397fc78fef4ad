package handlers

import (
	"log/slog"
	"net/http"
	"visitdesk/internal/ports"
	"visitdesk/internal/realtime"
	"visitdesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	broker        ports.Broker
	authService   *services.AuthService
	messages      *services.MessageService
	chats         *services.ChatService
	logger        *slog.Logger
	activeSockets prometheus.Gauge
}

func NewWebSocketHandler(broker ports.Broker, authService *services.AuthService, messages *services.MessageService, chats *services.ChatService, logger *slog.Logger, activeSockets prometheus.Gauge) *WebSocketHandler {
	return &WebSocketHandler{
		broker:        broker,
		authService:   authService,
		messages:      messages,
		chats:         chats,
		logger:        logger,
		activeSockets: activeSockets,
	}
}

// HandleWebSocket authenticates the connection from its query-parameter
// token and, only on success, upgrades it and subscribes it to its delivery
// groups. A rejected connection never subscribes to anything.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")

	user, err := h.authService.ValidateToken(c.Request.Context(), token)
	if err != nil {
		h.logger.Warn("unauthorized websocket connection attempt")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := realtime.NewClient(conn, user, h.broker, h.messages, h.chats, h.logger)
	if h.activeSockets != nil {
		h.activeSockets.Inc()
		client.OnClose = h.activeSockets.Dec
	}
	client.Register()

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket connection established", "userID", user.ID)
}
