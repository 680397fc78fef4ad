package services

import "errors"

// Service errors are translated to HTTP statuses at the handler boundary and
// to error events on the socket. They never terminate a connection.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSelfChat        = errors.New("cannot create a chat with yourself")
	ErrUserNotFound    = errors.New("user not found")
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found or not authorized")
	ErrNotParticipant  = errors.New("user is not a participant in this chat")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
