package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"visitdesk/internal/services"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service *services.ChatService
	logger  *slog.Logger
}

func NewChatHandler(service *services.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// CreateChat returns the existing chat for the pair with 200, or the newly
// created one with 201.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	user := services.UserFromContext(c)

	var req struct {
		ContactID string `json:"contact_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ContactID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Contact ID is required."})
		return
	}

	chat, created, err := h.service.GetOrCreateChat(c.Request.Context(), user.ID, req.ContactID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

func (h *ChatHandler) ListChats(c *gin.Context) {
	user := services.UserFromContext(c)
	includeMessages := c.Query("include_messages") == "true"

	chats, err := h.service.ListUserChats(c.Request.Context(), user.ID, includeMessages)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

// ListChatsForUser is the advisor view: chats of an arbitrary user. Guarded
// by a role check at the route.
func (h *ChatHandler) ListChatsForUser(c *gin.Context) {
	userID := c.Param("userId")
	includeMessages := c.Query("include_messages") == "true"

	chats, err := h.service.ListUserChats(c.Request.Context(), userID, includeMessages)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	user := services.UserFromContext(c)

	chatID, err := strconv.ParseInt(c.Param("chatId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat ID"})
		return
	}

	includeMessages := c.DefaultQuery("include_messages", "true") == "true"

	chat, err := h.service.GetChatByID(c.Request.Context(), chatID, user.ID, includeMessages)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, chat)
}
