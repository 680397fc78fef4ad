package services

import (
	"context"
	"log/slog"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"
)

// ChatService is the chat registry: one chat per unordered user pair.
type ChatService struct {
	chatRepo    ports.IChatRepository
	messageRepo ports.IMessageRepository
	users       ports.IUserDirectory
	logger      *slog.Logger
}

func NewChatService(chatRepo ports.IChatRepository, messageRepo ports.IMessageRepository, users ports.IUserDirectory, logger *slog.Logger) *ChatService {
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		users:       users,
		logger:      logger,
	}
}

// GetOrCreateChat returns the chat between userID and contactID, creating it
// if the pair has none. Order of the arguments does not matter.
func (s *ChatService) GetOrCreateChat(ctx context.Context, userID, contactID string) (*models.Chat, bool, error) {
	if userID == "" || contactID == "" {
		return nil, false, ErrInvalidInput
	}
	if userID == contactID {
		return nil, false, ErrSelfChat
	}

	contact, err := s.users.GetUserByID(ctx, contactID)
	if err != nil {
		s.logger.Error("failed to check contact existence", "contactID", contactID, "error", err)
		return nil, false, err
	}
	if contact == nil {
		s.logger.Warn("contact not found", "contactID", contactID)
		return nil, false, ErrUserNotFound
	}

	chat, created, err := s.chatRepo.GetOrCreate(ctx, userID, contactID)
	if err != nil {
		s.logger.Error("failed to get or create chat", "error", err)
		return nil, false, err
	}

	if created {
		s.logger.Info("chat created", "chatID", chat.ID, "participants", chat.Participants())
	}
	return chat, created, nil
}

// ListUserChats returns every chat the user participates in, eager-loading
// messages newest-first when requested.
func (s *ChatService) ListUserChats(ctx context.Context, userID string, includeMessages bool) ([]models.Chat, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	chats, err := s.chatRepo.GetUserChats(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get user chats", "userID", userID, "error", err)
		return nil, err
	}

	if includeMessages {
		for i := range chats {
			messages, err := s.messageRepo.GetChatMessages(ctx, chats[i].ID)
			if err != nil {
				s.logger.Error("failed to load chat messages", "chatID", chats[i].ID, "error", err)
				return nil, err
			}
			chats[i].Messages = messages
		}
	}

	s.logger.Debug("retrieved user chats", "userID", userID, "chatCount", len(chats))
	return chats, nil
}

func (s *ChatService) GetChatByID(ctx context.Context, chatID int64, requesterID string, includeMessages bool) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		s.logger.Error("failed to check chat existence", "chatID", chatID, "error", err)
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.HasParticipant(requesterID) {
		s.logger.Warn("chat access denied", "chatID", chatID, "userID", requesterID)
		return nil, ErrNotParticipant
	}

	if includeMessages {
		messages, err := s.messageRepo.GetChatMessages(ctx, chat.ID)
		if err != nil {
			return nil, err
		}
		chat.Messages = messages
	}
	return chat, nil
}
