package models

import "time"

const (
	MessageTypeDirect    = "direct"
	MessageTypeBroadcast = "broadcast"
)

// Message is a unit of communication. Direct messages always belong to a
// chat; broadcast messages carry an explicit receiver set instead. Only
// Content (by the sender) and SeenBy (append-only) are mutable.
type Message struct {
	ID        int64     `json:"id"`
	SenderID  string    `json:"sender_id"`
	ChatID    *int64    `json:"chat_id,omitempty"`
	Type      string    `json:"message_type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Receivers []string  `json:"receivers,omitempty"`
	SeenBy    []string  `json:"seen_by,omitempty"`
}

func (m *Message) SeenByUser(userID string) bool {
	for _, id := range m.SeenBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Inbox is the per-user message listing: received and sent newest-first,
// plus the count of received messages the user has not marked seen.
type Inbox struct {
	Received    []Message `json:"received_messages"`
	Sent        []Message `json:"sent_messages"`
	UnseenCount int       `json:"unseen_count"`
}
