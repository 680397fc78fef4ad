package tests

import (
	"context"
	"sync"
	"time"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) GetOrCreate(ctx context.Context, a, b string) (*models.Chat, bool, error) {
	args := m.Called(ctx, a, b)
	return args.Get(0).(*models.Chat), args.Bool(1), args.Error(2)
}

func (m *MockChatRepository) GetByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) GetUserChats(ctx context.Context, userID string) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Chat), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateDirect(ctx context.Context, senderID string, chatID int64, receiverID, content string) (*models.Message, error) {
	args := m.Called(ctx, senderID, chatID, receiverID, content)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) CreateBroadcast(ctx context.Context, senderID string, receiverIDs []string, content string) (*models.Message, error) {
	args := m.Called(ctx, senderID, receiverIDs, content)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) UpdateContent(ctx context.Context, messageID int64, senderID, content string) (*models.Message, error) {
	args := m.Called(ctx, messageID, senderID, content)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) Delete(ctx context.Context, messageID int64, senderID string) (bool, error) {
	args := m.Called(ctx, messageID, senderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) GetReceived(ctx context.Context, userID string) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) GetSent(ctx context.Context, userID string) ([]models.Message, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) CountUnseen(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) GetChatMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkChatSeen(ctx context.Context, chatID int64, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MockMessageRepository) MarkBroadcastSeen(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserDirectory) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserDirectory) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]string), args.Error(1)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error {
	args := m.Called(ctx, tokenHash, expiration)
	return args.Error(0)
}

// FakeBroker records published events so tests can assert on fan-out
// without a live hub.
type FakeBroker struct {
	mu       sync.Mutex
	Groups   []string
	Payloads [][]byte
}

func (b *FakeBroker) Subscribe(group string, sub ports.Subscriber)   {}
func (b *FakeBroker) Unsubscribe(group string, sub ports.Subscriber) {}

func (b *FakeBroker) Publish(ctx context.Context, group string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Groups = append(b.Groups, group)
	b.Payloads = append(b.Payloads, payload)
	return nil
}

func (b *FakeBroker) PublishedGroups() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Groups...)
}
