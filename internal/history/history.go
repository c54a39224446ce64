// Package history implements the process-wide deduplication store: the
// single authority for event ordering across every WNI reader thread. Once
// an event is accepted here, it is handed out as a shared, never-mutated
// pointer to every router; routers never re-examine ordering themselves.
package history

import (
	"container/list"
	"sync"

	"tina/internal/eew"
)

// History is a keyed, bounded store mapping earthquake id to its accepted
// event sequence. Capacity bounds the number of distinct ids tracked;
// eviction is FIFO by first insertion of an id, never by recency of
// update.
type History struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	byID     map[string]*list.Element
	events   map[string][]*eew.Event
}

// New creates a History with the given id capacity. Capacity must be > 0.
func New(capacity int) *History {
	if capacity <= 0 {
		panic("history: capacity must be > 0")
	}
	return &History{
		capacity: capacity,
		order:    list.New(),
		byID:     make(map[string]*list.Element),
		events:   make(map[string][]*eew.Event),
	}
}

// Append gates an arriving event through the succession relation. If the
// event's id is new, it is always accepted. Otherwise it is accepted iff
// the most recently accepted event for that id is succeeded by it. The
// returned event, when accepted, is the same pointer passed in: it must
// never be mutated afterwards by any caller.
func (h *History) Append(e *eew.Event) (*eew.Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prior, exists := h.events[e.ID]
	if !exists {
		h.events[e.ID] = []*eew.Event{e}
		el := h.order.PushBack(e.ID)
		h.byID[e.ID] = el
		h.evictIfOverCapacity()
		return e, true
	}

	last := prior[len(prior)-1]
	if !last.IsSucceededBy(e) {
		return nil, false
	}
	h.events[e.ID] = append(prior, e)
	return e, true
}

func (h *History) evictIfOverCapacity() {
	for len(h.events) > h.capacity {
		oldest := h.order.Front()
		if oldest == nil {
			return
		}
		id := oldest.Value.(string)
		h.order.Remove(oldest)
		delete(h.byID, id)
		delete(h.events, id)
	}
}

// Len returns the number of distinct ids currently tracked.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

// Sequence returns a copy of the accepted sequence for id, oldest first.
func (h *History) Sequence(id string) []*eew.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	seq, ok := h.events[id]
	if !ok {
		return nil
	}
	out := make([]*eew.Event, len(seq))
	copy(out, seq)
	return out
}
