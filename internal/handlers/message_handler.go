package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"visitdesk/internal/models"
	"visitdesk/internal/services"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	service *services.MessageService
	logger  *slog.Logger
}

func NewMessageHandler(service *services.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{service: service, logger: logger}
}

type sendMessageRequest struct {
	Type      string   `json:"message_type"`
	Content   string   `json:"content"`
	ChatID    int64    `json:"chat_id"`
	Receivers []string `json:"receivers"`
}

// SendMessage handles the synchronous send path. Direct messages require an
// existing chat id; broadcast messages require a receiver list.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	user := services.UserFromContext(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	var msg *models.Message
	var err error
	switch req.Type {
	case models.MessageTypeDirect:
		if req.ChatID == 0 || req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID and content are required for direct messages."})
			return
		}
		msg, err = h.service.SendDirect(c.Request.Context(), user.ID, req.ChatID, req.Content)
	case models.MessageTypeBroadcast:
		if len(req.Receivers) == 0 || req.Content == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Receivers and content are required for broadcast messages."})
			return
		}
		msg, err = h.service.SendBroadcast(c.Request.Context(), user.ID, req.Receivers, req.Content)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message type."})
		return
	}

	if err != nil {
		abortWithError(c, err)
		return
	}

	view, err := h.service.Render(c.Request.Context(), msg, user.ID)
	if err != nil {
		h.logger.Error("failed to render message", "messageID", msg.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message sent successfully", "data": view})
}

func (h *MessageHandler) GetInbox(c *gin.Context) {
	user := services.UserFromContext(c)

	inbox, err := h.service.Inbox(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	received, err := h.renderAll(c.Request.Context(), inbox.Received, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	sent, err := h.renderAll(c.Request.Context(), inbox.Sent, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received_messages": received,
		"sent_messages":     sent,
		"unseen_count":      inbox.UnseenCount,
	})
}

func (h *MessageHandler) EditMessage(c *gin.Context) {
	user := services.UserFromContext(c)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	msg, err := h.service.EditMessage(c.Request.Context(), messageID, user.ID, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}

	view, err := h.service.Render(c.Request.Context(), msg, user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message updated successfully", "data": view})
}

func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	user := services.UserFromContext(c)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	if err := h.service.DeleteMessage(c.Request.Context(), messageID, user.ID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// MarkRead marks every unseen message in the scope as seen by the caller.
// The scope path segment is a chat id or the literal "broadcast".
func (h *MessageHandler) MarkRead(c *gin.Context) {
	user := services.UserFromContext(c)
	scope := c.Param("chatId")

	if err := h.service.MarkSeen(c.Request.Context(), user.ID, scope); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read."})
}

func (h *MessageHandler) renderAll(ctx context.Context, messages []models.Message, viewerID string) ([]services.MessageView, error) {
	views := make([]services.MessageView, 0, len(messages))
	for i := range messages {
		view, err := h.service.Render(ctx, &messages[i], viewerID)
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}
	return views, nil
}
