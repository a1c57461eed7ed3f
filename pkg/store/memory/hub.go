package memory

import (
	"sync"

	"github.com/notewave/notewave/pkg/models"
	"github.com/notewave/notewave/pkg/store"
)

// subscriberBuffer sizes each subscriber's event channel. The feed carries
// invalidation signals, not data, so dropping under backpressure would lose
// cache invalidations; instead publish blocks briefly and the buffer absorbs
// bursts.
const subscriberBuffer = 64

type subscriber struct {
	table  string
	filter store.EventFilter
	ch     chan store.Event

	mu     sync.Mutex
	closed bool
	hub    *hub
}

// Events returns the subscriber's event stream. The channel is closed when
// the subscription or the store shuts down.
func (s *subscriber) Events() <-chan store.Event { return s.ch }

// Close detaches the subscriber and closes its channel. Safe to call twice.
func (s *subscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.remove(s)
	close(s.ch)
	return nil
}

// send delivers ev unless the subscriber is closed. The subscriber lock is
// held across the channel send so Close cannot close the channel mid-send.
func (s *subscriber) send(ev store.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.ch <- ev
}

// hub fans change events out to table-scoped subscribers.
type hub struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*subscriber]struct{})}
}

func (h *hub) subscribe(table string, filter store.EventFilter) (store.Subscription, error) {
	sub := &subscriber{
		table:  table,
		filter: filter,
		ch:     make(chan store.Event, subscriberBuffer),
		hub:    h,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub, nil
}

func (h *hub) remove(sub *subscriber) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// publish delivers ev to every subscriber whose table and filter match.
// databaseID is the database the event's page is a row of, nil otherwise;
// it resolves DatabaseID-scoped filters.
func (h *hub) publish(ev store.Event, databaseID *models.DatabaseID) {
	h.mu.Lock()
	matched := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		if sub.table != ev.Table {
			continue
		}
		if sub.filter.PageID != nil && *sub.filter.PageID != ev.PageID {
			continue
		}
		if sub.filter.DatabaseID != nil {
			if databaseID == nil || *databaseID != *sub.filter.DatabaseID {
				continue
			}
		}
		matched = append(matched, sub)
	}
	h.mu.Unlock()

	for _, sub := range matched {
		sub.send(ev)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
