package clientstore

import (
	"strings"
	"sync"
	"time"
)

// Memory keeps values in process memory. Contents are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memEntry
	ttl  time.Duration
	now  func() time.Time
}

type memEntry struct {
	value   string
	expires time.Time
}

func NewMemory() *Memory {
	return NewMemoryTTL(0, nil)
}

// NewMemoryTTL expires entries ttl after their last Set or Touch. A nil now
// uses the wall clock.
func NewMemoryTTL(ttl time.Duration, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{data: make(map[string]memEntry), ttl: ttl, now: now}
}

func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[key]
	if !ok || m.expired(e) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = memEntry{value: value, expires: m.deadline()}
	return nil
}

func (m *Memory) Touch(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return nil
	}
	if m.expired(e) {
		delete(m.data, key)
		return nil
	}
	e.expires = m.deadline()
	m.data[key] = e
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) DeletePrefix(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) deadline() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *Memory) expired(e memEntry) bool {
	return !e.expires.IsZero() && !m.now().Before(e.expires)
}
