package realtime

// InboundEvent is what a connected client sends over the socket.
type InboundEvent struct {
	Type      string   `json:"message_type"`
	Content   string   `json:"content"`
	ChatID    int64    `json:"chat_id,omitempty"`
	Receivers []string `json:"receivers,omitempty"`
}

type AckEvent struct {
	Success string `json:"success"`
}

type ErrorEvent struct {
	Error string `json:"error"`
}
