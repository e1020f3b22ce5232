package cart

import (
	"context"
	"sort"
	"sync"

	"buildmart/internal/domain"
)

// Memory is an in-process cart line store with synchronous subscriptions.
// It serves single-process demos (CART_REMOTE=memory) and the tests of
// packages built on top of the cart store.
type Memory struct {
	// deliverMu orders snapshot delivery: each delivery reads the lines
	// after every earlier one, so subscribers never step back in time.
	deliverMu sync.Mutex

	mu    sync.Mutex
	lines map[string]map[string]domain.CartLine
	next  uint64
	subs  map[string]map[uint64]func([]domain.CartLine)
}

func NewMemory() *Memory {
	return &Memory{
		lines: make(map[string]map[string]domain.CartLine),
		subs:  make(map[string]map[uint64]func([]domain.CartLine)),
	}
}

func (m *Memory) AddLine(_ context.Context, userID string, line domain.CartLine) error {
	if line.Quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	m.mu.Lock()
	if m.lines[userID] == nil {
		m.lines[userID] = make(map[string]domain.CartLine)
	}
	if existing, ok := m.lines[userID][line.IdentityKey]; ok {
		existing.Quantity += line.Quantity
		m.lines[userID][line.IdentityKey] = existing
	} else {
		m.lines[userID][line.IdentityKey] = line
	}
	m.mu.Unlock()
	m.publish(userID)
	return nil
}

func (m *Memory) RemoveLine(_ context.Context, userID, identityKey string) error {
	m.mu.Lock()
	_, ok := m.lines[userID][identityKey]
	delete(m.lines[userID], identityKey)
	m.mu.Unlock()
	if ok {
		m.publish(userID)
	}
	return nil
}

func (m *Memory) SetQuantity(ctx context.Context, userID, identityKey string, quantity int) error {
	if quantity <= 0 {
		return m.RemoveLine(ctx, userID, identityKey)
	}
	m.mu.Lock()
	line, ok := m.lines[userID][identityKey]
	if !ok {
		m.mu.Unlock()
		return domain.ErrNotFound
	}
	line.Quantity = quantity
	m.lines[userID][identityKey] = line
	m.mu.Unlock()
	m.publish(userID)
	return nil
}

func (m *Memory) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.lines, userID)
	m.mu.Unlock()
	m.publish(userID)
	return nil
}

func (m *Memory) List(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked(userID), nil
}

func (m *Memory) Subscribe(_ context.Context, userID string, fn func([]domain.CartLine)) (func(), error) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	id := m.next
	m.next++
	if m.subs[userID] == nil {
		m.subs[userID] = make(map[uint64]func([]domain.CartLine))
	}
	m.subs[userID][id] = fn
	snapshot := m.listLocked(userID)
	m.mu.Unlock()

	fn(snapshot)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[userID], id)
			m.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of open subscriptions for userID.
func (m *Memory) Subscribers(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[userID])
}

func (m *Memory) publish(userID string) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	snapshot := m.listLocked(userID)
	fns := make([]func([]domain.CartLine), 0, len(m.subs[userID]))
	for _, fn := range m.subs[userID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (m *Memory) listLocked(userID string) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(m.lines[userID]))
	for _, line := range m.lines[userID] {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].IdentityKey < lines[j].IdentityKey
		}
		return lines[i].AddedAt.Before(lines[j].AddedAt)
	})
	return lines
}
