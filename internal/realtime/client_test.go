package realtime

import (
	"encoding/json"
	"log/slog"
	"testing"
	"visitdesk/app/tests"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"
	"visitdesk/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestClient(t *testing.T, messageRepo *tests.MockMessageRepository, chatRepo *tests.MockChatRepository, users *tests.MockUserDirectory) *Client {
	t.Helper()
	logger := slog.Default()
	broker := NewHub(logger)
	messages := services.NewMessageService(messageRepo, chatRepo, users, broker, logger)
	chats := services.NewChatService(chatRepo, messageRepo, users, logger)
	return NewClient(nil, &models.User{ID: "u1", Role: models.RoleGuide}, broker, messages, chats, logger)
}

func nextEvent(t *testing.T, c *Client) map[string]interface{} {
	t.Helper()
	select {
	case payload := <-c.send:
		var event map[string]interface{}
		assert.NoError(t, json.Unmarshal(payload, &event))
		return event
	default:
		t.Fatal("no event queued on the connection")
		return nil
	}
}

func TestClient_EmptyContentKeepsConnectionActive(t *testing.T) {
	client := newTestClient(t, &tests.MockMessageRepository{}, &tests.MockChatRepository{}, &tests.MockUserDirectory{})

	client.handleInbound([]byte(`{"message_type":"direct","content":""}`))

	event := nextEvent(t, client)
	assert.Equal(t, "Message content cannot be empty.", event["error"])
	assert.False(t, client.closed.Load())
}

func TestClient_MalformedPayload(t *testing.T) {
	client := newTestClient(t, &tests.MockMessageRepository{}, &tests.MockChatRepository{}, &tests.MockUserDirectory{})

	client.handleInbound([]byte(`{not json`))

	event := nextEvent(t, client)
	assert.Equal(t, "Invalid JSON payload.", event["error"])
}

func TestClient_BroadcastSendAcks(t *testing.T) {
	messageRepo := &tests.MockMessageRepository{}
	users := &tests.MockUserDirectory{}

	users.On("FilterExisting", mock.Anything, []string{"u2", "u3"}).Return([]string{"u2", "u3"}, nil)
	messageRepo.On("CreateBroadcast", mock.Anything, "u1", []string{"u2", "u3"}, "tour at noon").
		Return(&models.Message{ID: 5, SenderID: "u1", Type: models.MessageTypeBroadcast, Content: "tour at noon", Receivers: []string{"u2", "u3"}}, nil)

	client := newTestClient(t, messageRepo, &tests.MockChatRepository{}, users)
	client.handleInbound([]byte(`{"message_type":"broadcast","content":"tour at noon","receivers":["u2","u3"]}`))

	event := nextEvent(t, client)
	assert.Equal(t, "Message sent successfully.", event["success"])

	messageRepo.AssertExpectations(t)
}

func TestClient_DirectWithoutChatResolvesViaRegistry(t *testing.T) {
	chatID := int64(12)
	messageRepo := &tests.MockMessageRepository{}
	chatRepo := &tests.MockChatRepository{}
	users := &tests.MockUserDirectory{}

	users.On("GetUserByID", mock.Anything, "u2").Return(&models.User{ID: "u2"}, nil)
	chatRepo.On("GetOrCreate", mock.Anything, "u1", "u2").
		Return(&models.Chat{ID: chatID, ParticipantA: "u1", ParticipantB: "u2"}, true, nil)
	chatRepo.On("GetByID", mock.Anything, chatID).
		Return(&models.Chat{ID: chatID, ParticipantA: "u1", ParticipantB: "u2"}, nil)
	messageRepo.On("CreateDirect", mock.Anything, "u1", chatID, "u2", "hello").
		Return(&models.Message{ID: 7, SenderID: "u1", ChatID: &chatID, Type: models.MessageTypeDirect, Content: "hello"}, nil)

	client := newTestClient(t, messageRepo, chatRepo, users)
	client.handleInbound([]byte(`{"message_type":"direct","content":"hello","receivers":["u2"]}`))

	event := nextEvent(t, client)
	assert.Equal(t, "Message sent successfully.", event["success"])

	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestClient_DirectWithMultipleReceiversRejected(t *testing.T) {
	client := newTestClient(t, &tests.MockMessageRepository{}, &tests.MockChatRepository{}, &tests.MockUserDirectory{})

	client.handleInbound([]byte(`{"message_type":"direct","content":"hi","receivers":["u2","u3"]}`))

	event := nextEvent(t, client)
	assert.Equal(t, services.ErrInvalidInput.Error(), event["error"])
}

func TestClient_UnknownMessageType(t *testing.T) {
	client := newTestClient(t, &tests.MockMessageRepository{}, &tests.MockChatRepository{}, &tests.MockUserDirectory{})

	client.handleInbound([]byte(`{"message_type":"carrier-pigeon","content":"hi"}`))

	event := nextEvent(t, client)
	assert.Equal(t, "Invalid message type.", event["error"])
}

func TestClient_CloseUnsubscribesAndIsIdempotent(t *testing.T) {
	logger := slog.Default()
	hub := NewHub(logger)
	client := NewClient(nil, &models.User{ID: "u1"}, hub, nil, nil, logger)

	client.Register()
	assert.Equal(t, 1, hub.GroupSize(ports.UserGroup("u1")))
	assert.Equal(t, 1, hub.GroupSize(ports.BroadcastGroup))

	client.Close()
	client.Close()

	assert.Equal(t, 0, hub.GroupSize(ports.UserGroup("u1")))
	assert.Equal(t, 0, hub.GroupSize(ports.BroadcastGroup))
}

func TestClient_CloseWithoutRegisterIsSafe(t *testing.T) {
	logger := slog.Default()
	client := NewClient(nil, &models.User{ID: "u1"}, NewHub(logger), nil, nil, logger)
	client.Close()
	assert.True(t, client.closed.Load())
}
