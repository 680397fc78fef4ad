package ports

import "context"

// Subscriber receives payloads published to groups it is subscribed to.
// Deliver must not block; a failed delivery affects that subscriber only.
type Subscriber interface {
	Deliver(payload []byte) error
}

// Broker is the delivery fan-out: a group-based pub/sub registry. The
// in-memory hub and the Redis-backed broker both implement it.
type Broker interface {
	Subscribe(group string, sub Subscriber)
	// Unsubscribe of a non-member is a no-op.
	Unsubscribe(group string, sub Subscriber)
	// Publish delivers payload to every current member of group, best-effort.
	Publish(ctx context.Context, group string, payload []byte) error
}
