package realtime

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/metrics"

	"github.com/google/uuid"
)

var (
	ErrUnknownSubscriber = errors.New("unknown subscriber")
	ErrInvalidRoom       = errors.New("invalid room name")
	ErrHubClosed         = errors.New("realtime hub closed")
)

var roomPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_:\-]{0,63}$`)

// ValidRoom reports whether name can be used as a room.
func ValidRoom(name string) bool {
	return roomPattern.MatchString(name)
}

// Envelope is what a subscriber receives.
type Envelope struct {
	Name string    `json:"event"`
	Room string    `json:"room,omitempty"`
	Data Event     `json:"data"`
	At   time.Time `json:"at"`
}

type subscriber struct {
	id     string
	userID int64
	ch     chan Envelope
	rooms  map[string]struct{}
}

// Subscription is a live registration returned by Subscribe.
type Subscription struct {
	ID     string
	Events <-chan Envelope
}

// Hub is an in-memory room-aware broadcaster.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	rooms  map[string]map[string]*subscriber
	buffer int
	closed bool
	log    *logger.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer events.
func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 32
	}
	return &Hub{
		subs:   make(map[string]*subscriber),
		rooms:  make(map[string]map[string]*subscriber),
		buffer: buffer,
		log:    log.WithComponent("realtime"),
	}
}

var _ Publisher = (*Hub)(nil)

// Subscribe registers a viewer and joins the given rooms. The subscription
// is removed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, userID int64, rooms ...string) (*Subscription, error) {
	for _, room := range rooms {
		if !ValidRoom(room) {
			return nil, ErrInvalidRoom
		}
	}

	sub := &subscriber{
		id:     uuid.NewString(),
		userID: userID,
		ch:     make(chan Envelope, h.buffer),
		rooms:  make(map[string]struct{}, len(rooms)),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}
	h.subs[sub.id] = sub
	for _, room := range rooms {
		h.joinLocked(sub, room)
	}
	h.mu.Unlock()

	metrics.SubscriberConnected()
	h.log.Debug("subscriber added", "sub_id", sub.id, "user_id", userID, "rooms", rooms)

	go func() {
		<-ctx.Done()
		h.Unsubscribe(sub.id)
	}()

	return &Subscription{ID: sub.id, Events: sub.ch}, nil
}

// Owner returns the user a subscription belongs to.
func (h *Hub) Owner(subID string) (int64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.subs[subID]
	if !ok {
		return 0, ErrUnknownSubscriber
	}
	return sub.userID, nil
}

// Join adds a subscriber to a room. Joining twice is a no-op.
func (h *Hub) Join(subID, room string) error {
	if !ValidRoom(room) {
		return ErrInvalidRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[subID]
	if !ok {
		return ErrUnknownSubscriber
	}
	h.joinLocked(sub, room)
	return nil
}

// Leave removes a subscriber from a room. Leaving a room it never joined is
// a no-op.
func (h *Hub) Leave(subID, room string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[subID]
	if !ok {
		return ErrUnknownSubscriber
	}
	h.leaveLocked(sub, room)
	return nil
}

// Rooms lists the rooms a subscriber is in, sorted.
func (h *Hub) Rooms(subID string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sub, ok := h.subs[subID]
	if !ok {
		return nil, ErrUnknownSubscriber
	}
	out := make([]string, 0, len(sub.rooms))
	for room := range sub.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out, nil
}

// Publish delivers event to every subscriber, or to the members of
// event.Room() when it is set. It never blocks: a full buffer drops the
// event for that subscriber only.
func (h *Hub) Publish(event Event) {
	env := Envelope{
		Name: event.EventName(),
		Room: event.Room(),
		Data: event,
		At:   time.Now().UTC(),
	}
	metrics.RecordPublished(env.Name)

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return
	}

	targets := h.subs
	if env.Room != "" {
		targets = h.rooms[env.Room]
	}

	for _, sub := range targets {
		select {
		case sub.ch <- env:
		default:
			metrics.RecordDropped()
			h.log.Debug("dropped event for slow subscriber", "event", env.Name, "sub_id", sub.id)
		}
	}
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[subID]
	if !ok {
		return
	}
	for room := range sub.rooms {
		h.leaveLocked(sub, room)
	}
	delete(h.subs, subID)
	close(sub.ch)

	metrics.SubscriberDisconnected()
	h.log.Debug("subscriber removed", "sub_id", subID)
}

// SubscriberCount reports connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		close(sub.ch)
		delete(h.subs, id)
		metrics.SubscriberDisconnected()
	}
	h.rooms = make(map[string]map[string]*subscriber)
}

func (h *Hub) joinLocked(sub *subscriber, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*subscriber)
		h.rooms[room] = members
	}
	members[sub.id] = sub
	sub.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(sub *subscriber, room string) {
	delete(sub.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, sub.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}
