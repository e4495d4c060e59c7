package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxEntries 메모리 캐시 기본 최대 항목 수
const DefaultMaxEntries = 10000

type memoryEntry struct {
	data      []byte
	timestamp time.Time
	ttl       time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// MemoryBackend process-local backend. Expiry is checked on read only;
// the LRU bound keeps an unread key space from growing without limit.
type MemoryBackend struct {
	entries *lru.Cache[string, memoryEntry]
	now     func() time.Time
}

// NewMemoryBackend creates an LRU-bounded in-memory backend
func NewMemoryBackend(maxEntries int) (*MemoryBackend, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := lru.New[string, memoryEntry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{entries: entries, now: time.Now}, nil
}

// SetClock overrides time.Now (tests)
func (m *MemoryBackend) SetClock(now func() time.Time) {
	m.now = now
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.entries.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if e.expired(m.now()) {
		m.entries.Remove(key)
		return nil, ErrMiss
	}
	return e.data, nil
}

func (m *MemoryBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	m.entries.Add(key, memoryEntry{data: data, timestamp: m.now(), ttl: ttl})
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.entries.Remove(k)
	}
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, k := range m.entries.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (m *MemoryBackend) Flush(_ context.Context) error {
	m.entries.Purge()
	return nil
}
