package collections

import "container/list"

// KeyedLRUMap is a bounded FIFO of (key, value) pairs, unique by key. It is
// not a classic LRU: Upsert on an existing key replaces the value in place
// without moving it to the back. Eviction only ever removes the oldest
// entry, and only when a new key is inserted past capacity.
type KeyedLRUMap[K comparable, V any] struct {
	capacity int
	order    *list.List
	index    map[K]*list.Element
}

type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewKeyedLRUMap creates a KeyedLRUMap with the given capacity. Capacity
// must be > 0.
func NewKeyedLRUMap[K comparable, V any](capacity int) *KeyedLRUMap[K, V] {
	if capacity <= 0 {
		panic("collections: keyed lru map capacity must be > 0")
	}
	return &KeyedLRUMap[K, V]{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[K]*list.Element, capacity),
	}
}

// Len returns the number of distinct keys currently stored.
func (m *KeyedLRUMap[K, V]) Len() int { return len(m.index) }

// Get returns the value for key and whether it was present.
func (m *KeyedLRUMap[K, V]) Get(key K) (V, bool) {
	var zero V
	el, ok := m.index[key]
	if !ok {
		return zero, false
	}
	return el.Value.(*lruEntry[K, V]).value, true
}

// Upsert inserts or replaces the value for key. If key was already present
// its position in the eviction order is preserved and the previous value
// is returned with ok=true. Otherwise the pair is appended, evicting the
// oldest entry if the map is now over capacity, and ok is false.
func (m *KeyedLRUMap[K, V]) Upsert(key K, value V) (old V, ok bool) {
	if el, exists := m.index[key]; exists {
		entry := el.Value.(*lruEntry[K, V])
		old, entry.value = entry.value, value
		return old, true
	}
	el := m.order.PushBack(&lruEntry[K, V]{key: key, value: value})
	m.index[key] = el
	if len(m.index) > m.capacity {
		oldest := m.order.Front()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.index, oldest.Value.(*lruEntry[K, V]).key)
		}
	}
	var zero V
	return zero, false
}

// GetOrDefault returns the value for key, inserting a zero value (evicting
// the oldest entry if necessary) when key is absent. The returned pointer
// may be mutated by the caller in place.
func (m *KeyedLRUMap[K, V]) GetOrDefault(key K) *V {
	if el, exists := m.index[key]; exists {
		return &el.Value.(*lruEntry[K, V]).value
	}
	var zero V
	m.Upsert(key, zero)
	return &m.index[key].Value.(*lruEntry[K, V]).value
}

// Keys returns all keys, oldest first.
func (m *KeyedLRUMap[K, V]) Keys() []K {
	out := make([]K, 0, m.order.Len())
	for e := m.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*lruEntry[K, V]).key)
	}
	return out
}
