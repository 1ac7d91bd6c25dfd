package dedupe

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	seenAt time.Time
	elem   *list.Element
}

// Memory is a process-local TTL set with a size cap. Oldest keys are evicted
// first once the cap is reached.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	order   *list.List
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemory creates an in-process store.
func NewMemory(ttl time.Duration, maxSize int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxSize <= 0 {
		maxSize = 10_000
	}
	return &Memory{
		entries: make(map[string]*memoryEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (m *Memory) MarkSeen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.expireLocked(now)

	if _, ok := m.entries[key]; ok {
		return true, nil
	}

	if len(m.entries) >= m.maxSize {
		if front := m.order.Front(); front != nil {
			m.removeLocked(front.Value.(string))
		}
	}
	m.entries[key] = &memoryEntry{seenAt: now, elem: m.order.PushBack(key)}
	return false, nil
}

func (m *Memory) Forget(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(key)
	return nil
}

// expireLocked drops entries older than the TTL. The list is in insertion
// order so it stops at the first live entry.
func (m *Memory) expireLocked(now time.Time) {
	for front := m.order.Front(); front != nil; front = m.order.Front() {
		key := front.Value.(string)
		if now.Sub(m.entries[key].seenAt) < m.ttl {
			return
		}
		m.removeLocked(key)
	}
}

func (m *Memory) removeLocked(key string) {
	entry, ok := m.entries[key]
	if !ok {
		return
	}
	m.order.Remove(entry.elem)
	delete(m.entries, key)
}
