package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"visitdesk/internal/models"
	"visitdesk/internal/ports"
)

// ScopeBroadcast is the literal mark-read scope for broadcast messages.
const ScopeBroadcast = "broadcast"

// MessageEvent is the envelope pushed to delivery groups.
type MessageEvent struct {
	Event   string         `json:"event"`
	Payload models.Message `json:"payload"`
}

// MessageView is the API representation: profile summaries instead of bare
// IDs, plus a per-viewer seen flag.
type MessageView struct {
	ID        int64         `json:"id"`
	Sender    models.User   `json:"sender"`
	Receivers []models.User `json:"receivers"`
	ChatID    *int64        `json:"chat"`
	Type      string        `json:"message_type"`
	Content   string        `json:"content"`
	Timestamp string        `json:"timestamp"`
	IsSeen    bool          `json:"is_seen"`
}

// MessageService is the message ledger. Every successful write is followed by
// a best-effort push to the delivery fan-out; fan-out failures are logged and
// never surfaced to the sender.
type MessageService struct {
	messageRepo ports.IMessageRepository
	chatRepo    ports.IChatRepository
	users       ports.IUserDirectory
	broker      ports.Broker
	logger      *slog.Logger
	onSent      func(messageType string)
}

func NewMessageService(messageRepo ports.IMessageRepository, chatRepo ports.IChatRepository, users ports.IUserDirectory, broker ports.Broker, logger *slog.Logger) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		chatRepo:    chatRepo,
		users:       users,
		broker:      broker,
		logger:      logger,
	}
}

// SetSentObserver registers a hook invoked after every persisted send,
// used for metrics.
func (s *MessageService) SetSentObserver(observer func(messageType string)) {
	s.onSent = observer
}

func (s *MessageService) notifySent(messageType string) {
	if s.onSent != nil {
		s.onSent(messageType)
	}
}

func (s *MessageService) SendDirect(ctx context.Context, senderID string, chatID int64, content string) (*models.Message, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		s.logger.Error("failed to check chat existence", "chatID", chatID, "error", err)
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.HasParticipant(senderID) {
		s.logger.Warn("direct send denied", "chatID", chatID, "senderID", senderID)
		return nil, ErrNotParticipant
	}

	msg, err := s.messageRepo.CreateDirect(ctx, senderID, chatID, chat.OtherParticipant(senderID), content)
	if err != nil {
		s.logger.Error("failed to create direct message", "chatID", chatID, "error", err)
		return nil, err
	}

	s.publish(ctx, msg, ports.UserGroup(chat.ParticipantA), ports.UserGroup(chat.ParticipantB))
	s.notifySent(models.MessageTypeDirect)

	s.logger.Info("direct message sent", "messageID", msg.ID, "chatID", chatID, "senderID", senderID)
	return msg, nil
}

// SendBroadcast persists a broadcast message for the resolved receiver set.
// Unknown receiver IDs are dropped silently.
func (s *MessageService) SendBroadcast(ctx context.Context, senderID string, receiverIDs []string, content string) (*models.Message, error) {
	if content == "" || len(receiverIDs) == 0 {
		return nil, ErrInvalidInput
	}

	resolved, err := s.users.FilterExisting(ctx, receiverIDs)
	if err != nil {
		s.logger.Error("failed to resolve receivers", "error", err)
		return nil, err
	}

	msg, err := s.messageRepo.CreateBroadcast(ctx, senderID, resolved, content)
	if err != nil {
		s.logger.Error("failed to create broadcast message", "senderID", senderID, "error", err)
		return nil, err
	}

	s.publish(ctx, msg, ports.BroadcastGroup)
	s.notifySent(models.MessageTypeBroadcast)

	s.logger.Info("broadcast message sent", "messageID", msg.ID, "senderID", senderID, "receiverCount", len(resolved))
	return msg, nil
}

func (s *MessageService) EditMessage(ctx context.Context, messageID int64, requesterID, content string) (*models.Message, error) {
	if content == "" {
		return nil, ErrInvalidInput
	}

	msg, err := s.messageRepo.UpdateContent(ctx, messageID, requesterID, content)
	if err != nil {
		s.logger.Error("failed to edit message", "messageID", messageID, "error", err)
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	s.logger.Info("message edited", "messageID", messageID, "senderID", requesterID)
	return msg, nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, messageID int64, requesterID string) error {
	deleted, err := s.messageRepo.Delete(ctx, messageID, requesterID)
	if err != nil {
		s.logger.Error("failed to delete message", "messageID", messageID, "error", err)
		return err
	}
	if !deleted {
		return ErrMessageNotFound
	}

	s.logger.Info("message deleted", "messageID", messageID, "senderID", requesterID)
	return nil
}

func (s *MessageService) Inbox(ctx context.Context, userID string) (*models.Inbox, error) {
	received, err := s.messageRepo.GetReceived(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get received messages", "userID", userID, "error", err)
		return nil, err
	}

	sent, err := s.messageRepo.GetSent(ctx, userID)
	if err != nil {
		s.logger.Error("failed to get sent messages", "userID", userID, "error", err)
		return nil, err
	}

	unseen, err := s.messageRepo.CountUnseen(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count unseen messages", "userID", userID, "error", err)
		return nil, err
	}

	return &models.Inbox{Received: received, Sent: sent, UnseenCount: unseen}, nil
}

// MarkSeen adds userID to the seen set of every matching unseen message.
// Scope is either a chat id or the literal broadcast scope. Re-marking is a
// no-op.
func (s *MessageService) MarkSeen(ctx context.Context, userID, scope string) error {
	if scope == ScopeBroadcast {
		if err := s.messageRepo.MarkBroadcastSeen(ctx, userID); err != nil {
			s.logger.Error("failed to mark broadcast messages seen", "userID", userID, "error", err)
			return err
		}
		return nil
	}

	chatID, err := strconv.ParseInt(scope, 10, 64)
	if err != nil {
		return ErrInvalidInput
	}

	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if chat == nil {
		return ErrChatNotFound
	}
	if !chat.HasParticipant(userID) {
		return ErrNotParticipant
	}

	if err := s.messageRepo.MarkChatSeen(ctx, chatID, userID); err != nil {
		s.logger.Error("failed to mark chat messages seen", "chatID", chatID, "userID", userID, "error", err)
		return err
	}
	return nil
}

// Render resolves sender and receiver profiles for the API representation.
func (s *MessageService) Render(ctx context.Context, msg *models.Message, viewerID string) (*MessageView, error) {
	sender, err := s.users.GetUserByID(ctx, msg.SenderID)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		sender = &models.User{ID: msg.SenderID}
	}

	var receivers []models.User
	if len(msg.Receivers) > 0 {
		receivers, err = s.users.GetUsersByIDs(ctx, msg.Receivers)
		if err != nil {
			return nil, err
		}
	}

	return &MessageView{
		ID:        msg.ID,
		Sender:    *sender,
		Receivers: receivers,
		ChatID:    msg.ChatID,
		Type:      msg.Type,
		Content:   msg.Content,
		Timestamp: msg.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
		IsSeen:    msg.SeenByUser(viewerID),
	}, nil
}

// publish pushes the message event to each group. Delivery is best-effort:
// a failed group never fails the send that produced it.
func (s *MessageService) publish(ctx context.Context, msg *models.Message, groups ...string) {
	if s.broker == nil {
		return
	}

	payload, err := json.Marshal(MessageEvent{Event: "message", Payload: *msg})
	if err != nil {
		s.logger.Error("failed to marshal message event", "messageID", msg.ID, "error", err)
		return
	}

	for _, group := range groups {
		if err := s.broker.Publish(ctx, group, payload); err != nil {
			s.logger.Warn("fan-out publish failed", "group", group, "messageID", msg.ID, "error", err)
		}
	}
}
