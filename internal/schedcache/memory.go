package schedcache

import (
	"context"
	"sync"
	"time"

	"github.com/lox/campuswatt/internal/models"
)

type memEntry struct {
	entries []models.ScheduleEntry
	expires time.Time
}

// Memory is an in-process cache used when no Redis address is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key Key) ([]models.ScheduleEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key.String()]
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.entries, key.String())
		return nil, false, nil
	}
	out := make([]models.ScheduleEntry, len(e.entries))
	copy(out, e.entries)
	return out, true, nil
}

func (m *Memory) Set(ctx context.Context, key Key, entries []models.ScheduleEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired()
	stored := make([]models.ScheduleEntry, len(entries))
	copy(stored, entries)
	m.entries[key.String()] = memEntry{entries: stored, expires: m.now().Add(m.ttl)}
	return nil
}

// Len returns the number of stored schedules, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory) evictExpired() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, k)
		}
	}
}
