package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"
	"visitdesk/internal/services"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 256

var (
	errClientClosed = errors.New("client closed")
	errSlowConsumer = errors.New("send buffer full")
)

// Client is one authenticated socket connection. Inbound events are handled
// sequentially on the read pump; outbound deliveries go through the send
// buffer drained by the write pump. Everything the client subscribed to is
// released on close, unconditionally.
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	user     *models.User
	broker   ports.Broker
	messages *services.MessageService
	chats    *services.ChatService
	logger   *slog.Logger

	groups    []string
	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool
	closeOnce sync.Once

	// OnClose runs exactly once when the connection shuts down.
	OnClose func()
}

func NewClient(conn *websocket.Conn, user *models.User, broker ports.Broker, messages *services.MessageService, chats *services.ChatService, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		user:     user,
		broker:   broker,
		messages: messages,
		chats:    chats,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register subscribes the connection to its private group and the shared
// broadcast group. Called only after authentication succeeded.
func (c *Client) Register() {
	c.groups = []string{ports.UserGroup(c.user.ID), ports.BroadcastGroup}
	for _, group := range c.groups {
		c.broker.Subscribe(group, c)
	}
	c.logger.Info("socket registered", "userID", c.user.ID)
}

// Deliver queues a published payload for the write pump. It never blocks:
// a full buffer fails this delivery only.
func (c *Client) Deliver(payload []byte) error {
	if c.closed.Load() {
		return errClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return errSlowConsumer
	}
}

// Close tears the connection down: cancels in-flight work and unsubscribes
// from all groups. Safe to call more than once, and safe even if Register
// never ran.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.cancel()
		for _, group := range c.groups {
			c.broker.Unsubscribe(group, c)
		}
		if c.conn != nil {
			c.conn.Close()
		}
		if c.OnClose != nil {
			c.OnClose()
		}
		c.logger.Info("socket closed", "userID", c.user.ID)
	})
}

func (c *Client) ReadPump() {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", "userID", c.user.ID, "error", err)
			}
			return
		}
		c.handleInbound(data)
	}
}

func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

// handleInbound processes one client event. Every failure is answered with
// an error event on this connection only; the connection stays active.
func (c *Client) handleInbound(data []byte) {
	var event InboundEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.sendError("Invalid JSON payload.")
		return
	}

	if event.Content == "" {
		c.sendError("Message content cannot be empty.")
		return
	}

	var err error
	switch event.Type {
	case models.MessageTypeBroadcast:
		_, err = c.messages.SendBroadcast(c.ctx, c.user.ID, event.Receivers, event.Content)
	case models.MessageTypeDirect:
		err = c.sendDirect(event)
	default:
		c.sendError("Invalid message type.")
		return
	}

	if err != nil {
		c.logger.Warn("socket send failed", "userID", c.user.ID, "type", event.Type, "error", err)
		c.sendError(err.Error())
		return
	}

	c.sendAck("Message sent successfully.")
}

// sendDirect resolves the chat for a direct event. The chat id may be given
// explicitly; otherwise exactly one receiver is required and the chat is
// created on first contact.
func (c *Client) sendDirect(event InboundEvent) error {
	chatID := event.ChatID
	if chatID == 0 {
		if len(event.Receivers) != 1 {
			return services.ErrInvalidInput
		}
		chat, _, err := c.chats.GetOrCreateChat(c.ctx, c.user.ID, event.Receivers[0])
		if err != nil {
			return err
		}
		chatID = chat.ID
	}

	_, err := c.messages.SendDirect(c.ctx, c.user.ID, chatID, event.Content)
	return err
}

func (c *Client) sendError(message string) {
	payload, _ := json.Marshal(ErrorEvent{Error: message})
	if err := c.Deliver(payload); err != nil {
		c.logger.Warn("failed to deliver error event", "userID", c.user.ID, "error", err)
	}
}

func (c *Client) sendAck(message string) {
	payload, _ := json.Marshal(AckEvent{Success: message})
	if err := c.Deliver(payload); err != nil {
		c.logger.Warn("failed to deliver ack", "userID", c.user.ID, "error", err)
	}
}
