package handlers_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"visitdesk/app/tests"
	"visitdesk/internal/handlers"
	"visitdesk/internal/models"
	"visitdesk/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type handlerFixture struct {
	router      *gin.Engine
	messageRepo *tests.MockMessageRepository
	chatRepo    *tests.MockChatRepository
	users       *tests.MockUserDirectory
	broker      *tests.FakeBroker
}

func newFixture(user *models.User) *handlerFixture {
	gin.SetMode(gin.TestMode)
	logger := slog.Default()

	f := &handlerFixture{
		messageRepo: &tests.MockMessageRepository{},
		chatRepo:    &tests.MockChatRepository{},
		users:       &tests.MockUserDirectory{},
		broker:      &tests.FakeBroker{},
	}

	messageService := services.NewMessageService(f.messageRepo, f.chatRepo, f.users, f.broker, logger)
	chatService := services.NewChatService(f.chatRepo, f.messageRepo, f.users, logger)

	messageHandler := handlers.NewMessageHandler(messageService, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)

	f.router = gin.New()
	f.router.Use(func(c *gin.Context) {
		services.SetUser(c, user)
		c.Next()
	})

	f.router.POST("/api/messages", messageHandler.SendMessage)
	f.router.GET("/api/messages", messageHandler.GetInbox)
	f.router.PUT("/api/messages/:messageId", messageHandler.EditMessage)
	f.router.DELETE("/api/messages/:messageId", messageHandler.DeleteMessage)
	f.router.POST("/api/chats", chatHandler.CreateChat)
	f.router.POST("/api/chats/:chatId/mark-read", messageHandler.MarkRead)

	return f
}

func (f *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestSendMessage_Direct(t *testing.T) {
	sender := &models.User{ID: "u1", Name: "Mert", Role: models.RoleGuide}
	chatID := int64(3)

	t.Run("Created", func(t *testing.T) {
		f := newFixture(sender)
		f.chatRepo.On("GetByID", mock.Anything, chatID).
			Return(&models.Chat{ID: chatID, ParticipantA: "u1", ParticipantB: "u2"}, nil)
		f.messageRepo.On("CreateDirect", mock.Anything, "u1", chatID, "u2", "hello").
			Return(&models.Message{ID: 1, SenderID: "u1", ChatID: &chatID, Type: models.MessageTypeDirect, Content: "hello", Receivers: []string{"u2"}}, nil)
		f.users.On("GetUserByID", mock.Anything, "u1").Return(sender, nil)
		f.users.On("GetUsersByIDs", mock.Anything, []string{"u2"}).
			Return([]models.User{{ID: "u2", Name: "Elif"}}, nil)

		rec := f.do(http.MethodPost, "/api/messages", `{"message_type":"direct","chat_id":3,"content":"hello"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			Data services.MessageView `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "hello", body.Data.Content)
		assert.Equal(t, "u1", body.Data.Sender.ID)
		assert.Equal(t, []string{"user_u1", "user_u2"}, f.broker.PublishedGroups())
	})

	t.Run("Missing chat id", func(t *testing.T) {
		f := newFixture(sender)
		rec := f.do(http.MethodPost, "/api/messages", `{"message_type":"direct","content":"hello"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Not a participant", func(t *testing.T) {
		f := newFixture(&models.User{ID: "intruder"})
		f.chatRepo.On("GetByID", mock.Anything, chatID).
			Return(&models.Chat{ID: chatID, ParticipantA: "u1", ParticipantB: "u2"}, nil)

		rec := f.do(http.MethodPost, "/api/messages", `{"message_type":"direct","chat_id":3,"content":"hello"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Chat not found", func(t *testing.T) {
		f := newFixture(sender)
		f.chatRepo.On("GetByID", mock.Anything, chatID).Return((*models.Chat)(nil), nil)

		rec := f.do(http.MethodPost, "/api/messages", `{"message_type":"direct","chat_id":3,"content":"hello"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSendMessage_Broadcast(t *testing.T) {
	sender := &models.User{ID: "u1", Name: "Deniz", Role: models.RoleAdvisor}

	f := newFixture(sender)
	f.users.On("FilterExisting", mock.Anything, []string{"u2", "u3"}).Return([]string{"u2", "u3"}, nil)
	f.messageRepo.On("CreateBroadcast", mock.Anything, "u1", []string{"u2", "u3"}, "fair tomorrow").
		Return(&models.Message{ID: 4, SenderID: "u1", Type: models.MessageTypeBroadcast, Content: "fair tomorrow", Receivers: []string{"u2", "u3"}}, nil)
	f.users.On("GetUserByID", mock.Anything, "u1").Return(sender, nil)
	f.users.On("GetUsersByIDs", mock.Anything, []string{"u2", "u3"}).
		Return([]models.User{{ID: "u2"}, {ID: "u3"}}, nil)

	rec := f.do(http.MethodPost, "/api/messages", `{"message_type":"broadcast","receivers":["u2","u3"],"content":"fair tomorrow"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"broadcast"}, f.broker.PublishedGroups())
}

func TestGetInbox(t *testing.T) {
	user := &models.User{ID: "u2", Name: "Elif"}

	f := newFixture(user)
	f.messageRepo.On("GetReceived", mock.Anything, "u2").
		Return([]models.Message{{ID: 1, SenderID: "u1", Content: "hello", Receivers: []string{"u2"}}}, nil)
	f.messageRepo.On("GetSent", mock.Anything, "u2").Return([]models.Message{}, nil)
	f.messageRepo.On("CountUnseen", mock.Anything, "u2").Return(1, nil)
	f.users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
	f.users.On("GetUsersByIDs", mock.Anything, []string{"u2"}).Return([]models.User{{ID: "u2"}}, nil)

	rec := f.do(http.MethodGet, "/api/messages", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Received    []services.MessageView `json:"received_messages"`
		Sent        []services.MessageView `json:"sent_messages"`
		UnseenCount int                    `json:"unseen_count"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Received, 1)
	assert.Empty(t, body.Sent)
	assert.Equal(t, 1, body.UnseenCount)
}

func TestDeleteMessage_NotOwner(t *testing.T) {
	f := newFixture(&models.User{ID: "u2"})
	f.messageRepo.On("Delete", mock.Anything, int64(9), "u2").Return(false, nil)

	rec := f.do(http.MethodDelete, "/api/messages/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditMessage_EmptyContent(t *testing.T) {
	f := newFixture(&models.User{ID: "u1"})

	rec := f.do(http.MethodPut, "/api/messages/9", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarkRead(t *testing.T) {
	t.Run("Broadcast scope", func(t *testing.T) {
		f := newFixture(&models.User{ID: "u2"})
		f.messageRepo.On("MarkBroadcastSeen", mock.Anything, "u2").Return(nil)

		rec := f.do(http.MethodPost, "/api/chats/broadcast/mark-read", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		f.messageRepo.AssertExpectations(t)
	})

	t.Run("Chat scope forbidden for outsiders", func(t *testing.T) {
		f := newFixture(&models.User{ID: "intruder"})
		f.chatRepo.On("GetByID", mock.Anything, int64(3)).
			Return(&models.Chat{ID: 3, ParticipantA: "u1", ParticipantB: "u2"}, nil)

		rec := f.do(http.MethodPost, "/api/chats/3/mark-read", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCreateChat(t *testing.T) {
	user := &models.User{ID: "u1"}

	t.Run("New pair gets 201", func(t *testing.T) {
		f := newFixture(user)
		f.users.On("GetUserByID", mock.Anything, "u2").Return(&models.User{ID: "u2"}, nil)
		f.chatRepo.On("GetOrCreate", mock.Anything, "u1", "u2").
			Return(&models.Chat{ID: 1, ParticipantA: "u1", ParticipantB: "u2"}, true, nil)

		rec := f.do(http.MethodPost, "/api/chats", `{"contact_id":"u2"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("Existing pair gets 200", func(t *testing.T) {
		f := newFixture(user)
		f.users.On("GetUserByID", mock.Anything, "u2").Return(&models.User{ID: "u2"}, nil)
		f.chatRepo.On("GetOrCreate", mock.Anything, "u1", "u2").
			Return(&models.Chat{ID: 1, ParticipantA: "u1", ParticipantB: "u2"}, false, nil)

		rec := f.do(http.MethodPost, "/api/chats", `{"contact_id":"u2"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Self chat rejected", func(t *testing.T) {
		f := newFixture(user)
		rec := f.do(http.MethodPost, "/api/chats", `{"contact_id":"u1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
