package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (f *fakeSubscriber) Deliver(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("delivery failed")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSubscriber) received() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func TestHub_PublishReachesAllGroupMembers(t *testing.T) {
	hub := NewHub(slog.Default())
	a := &fakeSubscriber{}
	b := &fakeSubscriber{}
	outsider := &fakeSubscriber{}

	hub.Subscribe("user_1", a)
	hub.Subscribe("user_1", b)
	hub.Subscribe("user_2", outsider)

	err := hub.Publish(context.Background(), "user_1", []byte("hello"))

	assert.NoError(t, err)
	assert.Equal(t, 1, a.received())
	assert.Equal(t, 1, b.received())
	assert.Equal(t, 0, outsider.received())
}

func TestHub_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	hub := NewHub(slog.Default())
	broken := &fakeSubscriber{fail: true}
	healthy := &fakeSubscriber{}

	hub.Subscribe("broadcast", broken)
	hub.Subscribe("broadcast", healthy)

	err := hub.Publish(context.Background(), "broadcast", []byte("announcement"))

	assert.NoError(t, err)
	assert.Equal(t, 1, healthy.received())
}

func TestHub_UnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub(slog.Default())
	sub := &fakeSubscriber{}

	hub.Subscribe("user_1", sub)
	hub.Unsubscribe("user_1", sub)
	hub.Unsubscribe("user_1", sub)
	hub.Unsubscribe("never_existed", sub)

	assert.Equal(t, 0, hub.GroupSize("user_1"))

	hub.Publish(context.Background(), "user_1", []byte("gone"))
	assert.Equal(t, 0, sub.received())
}

func TestHub_PublishToEmptyGroup(t *testing.T) {
	hub := NewHub(slog.Default())
	assert.NoError(t, hub.Publish(context.Background(), "user_404", []byte("void")))
}
