package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topics. Every ledger/roster mutation is published on one or more of these;
// subscribers (in-process callbacks or WebSocket clients) attach per topic.
const (
	// TopicDirectory carries changes to the set of currently live spaces.
	TopicDirectory = "directory"
)

// SpaceTopic is the topic for one host's ledger document.
func SpaceTopic(hostSlug string) string {
	return "space:" + hostSlug
}

// SessionTopic is the topic for one session's participant roster.
func SessionTopic(sessionID uuid.UUID) string {
	return "session:" + sessionID.String()
}

// RedisPublisher publishes topic events to Redis (for cross-instance fan-out).
type RedisPublisher interface {
	PublishTopicEvent(topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to a topic's Redis channel and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub fans topic events out to in-process subscribers. The Redis bridge is
// attached lazily: the first subscriber on a topic opens the Redis
// subscription, the last one leaving closes it.
type Hub struct {
	// topic -> subscriberID -> handler
	local  map[string]map[string]func(event string, payload []byte)
	subs   map[string]func() // cancel Redis subscription per topic
	mu     sync.RWMutex
	logger *zap.Logger
	pub    RedisPublisher
	sub    RedisSubscriber
}

// NewHub creates a new fan-out hub. pub/sub may be nil (single instance, no Redis bridge).
func NewHub(logger *zap.Logger, pub RedisPublisher, sub RedisSubscriber) *Hub {
	return &Hub{
		local:  make(map[string]map[string]func(event string, payload []byte)),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Subscribe registers handler for all events on topic and returns a disposer.
// The disposer is idempotent and must be called to release the subscription.
func (h *Hub) Subscribe(topic string, handler func(event string, payload []byte)) (cancel func()) {
	id := uuid.New().String()

	h.mu.Lock()
	if h.local[topic] == nil {
		h.local[topic] = make(map[string]func(event string, payload []byte))
		if h.sub != nil {
			redisCancel, err := h.sub.SubscribeTopic(topic, func(event string, payload []byte) {
				h.Broadcast(topic, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("redis topic subscribe failed", zap.String("topic", topic), zap.Error(err))
			} else {
				h.subs[topic] = redisCancel
			}
		}
	}
	h.local[topic][id] = handler
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if m, ok := h.local[topic]; ok {
				delete(m, id)
				if len(m) == 0 {
					delete(h.local, topic)
					if redisCancel, ok := h.subs[topic]; ok {
						redisCancel()
						delete(h.subs, topic)
					}
				}
			}
			h.mu.Unlock()
		})
	}
}

// Broadcast delivers an event to local subscribers of topic only.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	data := marshalPayload(payload)

	h.mu.RLock()
	handlers := make([]func(event string, payload []byte), 0, len(h.local[topic]))
	for _, fn := range h.local[topic] {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(event, data)
	}
}

// Publish delivers an event to every subscriber of topic across all instances.
// With Redis attached it publishes only: this instance receives its own message
// through the topic subscription, so local subscribers see exactly one delivery.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	if h.pub != nil {
		if err := h.pub.PublishTopicEvent(topic, event, marshalPayload(payload)); err == nil {
			return
		}
		h.logger.Warn("redis publish failed, falling back to local broadcast",
			zap.String("topic", topic), zap.String("event", event))
	}
	h.Broadcast(topic, event, payload)
}

// SubscriberCount returns the number of local subscribers on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.local[topic])
}

func marshalPayload(payload interface{}) []byte {
	switch v := payload.(type) {
	case []byte:
		return v
	case json.RawMessage:
		return v
	default:
		data, _ := json.Marshal(payload)
		return data
	}
}
