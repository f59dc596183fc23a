// Package broadcast fans search events out to every connected display surface.
package broadcast

import (
	"context"
	"sync"

	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
)

type EventType string

const (
	EventSearch   EventType = "search"
	EventDispose  EventType = "dispose"
	EventNavigate EventType = "navigate"
)

const (
	subscriberBufferSize = 64
	publishBufferSize    = 256
)

type Event struct {
	Type       EventType                 `json:"type"`
	Response   *models.SearchResponse    `json:"response,omitempty"`
	SearchID   string                    `json:"search_id,omitempty"`
	Navigation *models.NavigationRequest `json:"navigation,omitempty"`
}

type subscriber struct {
	events chan Event
}

// Hub delivers events to subscribers in publish order. A subscriber that falls
// behind loses events instead of stalling the publisher.
type Hub struct {
	logger   logger.Logger
	publishC chan Event

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

func New(logger logger.Logger) *Hub {
	return &Hub{
		logger:      logger,
		publishC:    make(chan Event, publishBufferSize),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Run delivers published events until ctx is done, then closes every subscription.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case event := <-h.publishC:
			h.deliver(event)
		case <-ctx.Done():
			h.logger.Info("broadcast hub stopped", "reason", ctx.Err())
			h.shutdown()
			return
		}
	}
}

// Subscribe returns a channel of events and a function that ends the subscription.
// The channel is closed when the subscription ends or the hub stops.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	sub := &subscriber{events: make(chan Event, subscriberBufferSize)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.events)
		return sub.events, func() {}
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.events)
			}
		})
	}
	return sub.events, unsubscribe
}

func (h *Hub) Publish(event Event) {
	select {
	case h.publishC <- event:
	default:
		h.logger.Warn("broadcast queue full, dropping event", "type", event.Type)
	}
}

func (h *Hub) PublishSearch(response *models.SearchResponse) {
	h.Publish(Event{Type: EventSearch, Response: response, SearchID: response.SearchID})
}

func (h *Hub) PublishDispose(searchID string) {
	h.Publish(Event{Type: EventDispose, SearchID: searchID})
}

func (h *Hub) PublishNavigate(request models.NavigationRequest) {
	h.Publish(Event{Type: EventNavigate, Navigation: &request})
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subscribers)
}

func (h *Hub) deliver(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.events <- event:
		default:
			h.logger.Warn("subscriber is not keeping up, dropping event", "type", event.Type)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subscribers {
		delete(h.subscribers, sub)
		close(sub.events)
	}
}
