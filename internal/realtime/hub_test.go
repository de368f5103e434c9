package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), nil, nil)
}

func TestHub_SubscribeAndBroadcast(t *testing.T) {
	hub := newTestHub()

	var mu sync.Mutex
	var events []string
	cancel := hub.Subscribe(SpaceTopic("alice"), func(event string, payload []byte) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	})
	defer cancel()

	hub.Broadcast(SpaceTopic("alice"), EventSpaceLive, nil)
	hub.Broadcast(SpaceTopic("bob"), EventSpaceLive, nil) // different topic, not delivered

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{EventSpaceLive}, events)
}

func TestHub_PublishFallsBackToLocalWithoutRedis(t *testing.T) {
	hub := newTestHub()

	delivered := 0
	cancel := hub.Subscribe(TopicDirectory, func(string, []byte) { delivered++ })
	defer cancel()

	hub.Publish(TopicDirectory, EventDirectoryChanged, map[string]string{"reason": "test"})
	assert.Equal(t, 1, delivered)
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	hub := newTestHub()

	delivered := 0
	cancel := hub.Subscribe(TopicDirectory, func(string, []byte) { delivered++ })

	hub.Broadcast(TopicDirectory, EventDirectoryChanged, nil)
	require.Equal(t, 1, delivered)

	cancel()
	cancel() // disposer is idempotent

	hub.Broadcast(TopicDirectory, EventDirectoryChanged, nil)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 0, hub.SubscriberCount(TopicDirectory))
}

func TestHub_MultipleSubscribersSameTopic(t *testing.T) {
	hub := newTestHub()

	a, b := 0, 0
	cancelA := hub.Subscribe(TopicDirectory, func(string, []byte) { a++ })
	cancelB := hub.Subscribe(TopicDirectory, func(string, []byte) { b++ })
	defer cancelB()

	hub.Broadcast(TopicDirectory, EventDirectoryChanged, nil)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	cancelA()
	hub.Broadcast(TopicDirectory, EventDirectoryChanged, nil)
	assert.Equal(t, 1, a)
	assert.Equal(t, 2, b)
}

func TestHub_PayloadPassthrough(t *testing.T) {
	hub := newTestHub()

	var got []byte
	cancel := hub.Subscribe(TopicDirectory, func(_ string, payload []byte) { got = payload })
	defer cancel()

	hub.Broadcast(TopicDirectory, EventDirectoryChanged, map[string]int{"count": 3})
	assert.JSONEq(t, `{"count":3}`, string(got))

	hub.Broadcast(TopicDirectory, EventDirectoryChanged, []byte(`{"raw":true}`))
	assert.JSONEq(t, `{"raw":true}`, string(got))
}
