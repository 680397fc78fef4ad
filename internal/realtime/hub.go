package realtime

import (
	"context"
	"log/slog"
	"sync"
	"visitdesk/internal/ports"
)

// Hub is the in-process delivery fan-out: named groups of subscribers.
// Membership is process-local and lives only as long as the subscriptions.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[ports.Subscriber]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		groups: make(map[string]map[ports.Subscriber]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(group string, sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[ports.Subscriber]struct{})
		h.groups[group] = members
	}
	members[sub] = struct{}{}
}

// Unsubscribe removes sub from group. Removing a non-member is a no-op.
func (h *Hub) Unsubscribe(group string, sub ports.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish delivers payload to every current member of group. A failing
// subscriber is logged and skipped; it never blocks the others or the caller.
func (h *Hub) Publish(ctx context.Context, group string, payload []byte) error {
	h.mu.RLock()
	members := make([]ports.Subscriber, 0, len(h.groups[group]))
	for sub := range h.groups[group] {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	for _, sub := range members {
		if err := sub.Deliver(payload); err != nil {
			h.logger.Warn("delivery to subscriber failed", "group", group, "error", err)
		}
	}
	return nil
}

// GroupSize reports current membership, mainly for tests and metrics.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}
