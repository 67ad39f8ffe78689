package service

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// EventType names a server-sent event
type EventType string

const (
	EventNotification EventType = "notification" // a new inbox item
	EventUnreadCount  EventType = "unread_count" // the member's unread total
	EventHeartbeat    EventType = "heartbeat"
)

const (
	DefaultHeartbeat = 30 * time.Second
	streamBuffer     = 100
)

type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Format renders the event as one SSE frame
func (e *Event) Format() string {
	payload, _ := json.Marshal(e.Data)
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(string(e.Type))
	b.WriteString("\ndata: ")
	b.Write(payload)
	b.WriteString("\n\n")
	return b.String()
}

// Subscriber is one open stream. Events and Done are closed together when
// the stream is removed or the hub shuts down.
type Subscriber struct {
	ID     string
	UserID string
	Events chan *Event
	Done   chan struct{}
}

func (s *Subscriber) offer(e *Event) {
	select {
	case s.Events <- e:
	default: // slow reader; drop rather than block the publisher
	}
}

func (s *Subscriber) detach() {
	close(s.Done)
	close(s.Events)
}

// EventHub fans events out to each member's open streams. A member may hold
// several streams, one per tab or device.
type EventHub struct {
	mu      sync.RWMutex
	streams map[string]map[string]*Subscriber // member id, then stream id

	stop     chan struct{}
	stopOnce sync.Once
	beating  sync.WaitGroup
}

// NewEventHub starts the heartbeat; interval <= 0 means DefaultHeartbeat
func NewEventHub(interval time.Duration) *EventHub {
	if interval <= 0 {
		interval = DefaultHeartbeat
	}
	h := &EventHub{
		streams: make(map[string]map[string]*Subscriber),
		stop:    make(chan struct{}),
	}
	h.beating.Add(1)
	go h.heartbeat(interval)
	return h
}

func (h *EventHub) Subscribe(userID, subscriberID string) *Subscriber {
	sub := &Subscriber{
		ID:     subscriberID,
		UserID: userID,
		Events: make(chan *Event, streamBuffer),
		Done:   make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	member := h.streams[userID]
	if member == nil {
		member = make(map[string]*Subscriber)
		h.streams[userID] = member
	}
	if old, ok := member[subscriberID]; ok {
		old.detach()
	}
	member[subscriberID] = sub
	return sub
}

// Unsubscribe closes one stream. Unknown ids are ignored.
func (h *EventHub) Unsubscribe(userID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.streams[userID][subscriberID]; ok {
		h.remove(sub)
	}
}

// Release closes sub if it is still the member's stream under its id. A
// stream replaced by a newer subscription is already closed and is left alone.
func (h *EventHub) Release(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[sub.UserID][sub.ID] == sub {
		h.remove(sub)
	}
}

// remove requires h.mu held
func (h *EventHub) remove(sub *Subscriber) {
	sub.detach()
	member := h.streams[sub.UserID]
	delete(member, sub.ID)
	if len(member) == 0 {
		delete(h.streams, sub.UserID)
	}
}

// SendToUser offers event to every stream the member has open
func (h *EventHub) SendToUser(userID string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.streams[userID] {
		sub.offer(event)
	}
}

func (h *EventHub) broadcast(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, member := range h.streams {
		for _, sub := range member {
			sub.offer(event)
		}
	}
}

// heartbeat keeps idle streams open through proxies
func (h *EventHub) heartbeat(interval time.Duration) {
	defer h.beating.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			h.broadcast(&Event{
				Type: EventHeartbeat,
				Data: map[string]string{"timestamp": now.UTC().Format(time.RFC3339)},
			})
		}
	}
}

// Close stops the heartbeat and ends every stream. Safe to call twice.
func (h *EventHub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.beating.Wait()

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, member := range h.streams {
			for _, sub := range member {
				sub.detach()
			}
		}
		clear(h.streams)
	})
}

// SubscriberCount is the number of streams the member has open
func (h *EventHub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.streams[userID])
}
