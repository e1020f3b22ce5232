package cart

import (
	"context"
	"errors"
	"sort"
	"sync"

	"buildmart/internal/domain"
)

type memStorage struct {
	mu      sync.Mutex
	data    map[string]string
	setErr  error
	removes int
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (s *memStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *memStorage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes++
	delete(s.data, key)
	return nil
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// stubRemote keeps lines per user and delivers snapshots synchronously.
type stubRemote struct {
	mu           sync.Mutex
	lines        map[string][]domain.CartLine
	subs         map[int]stubSub
	nextSub      int
	addErr       error
	failAddAfter int
	addCalls     int
	removeErr    error
	setErr       error
	clearErr     error
	subscribeErr error
}

type stubSub struct {
	userID string
	fn     func([]domain.CartLine)
}

func newStubRemote() *stubRemote {
	return &stubRemote{lines: make(map[string][]domain.CartLine), subs: make(map[int]stubSub), failAddAfter: -1}
}

func (r *stubRemote) AddLine(_ context.Context, userID string, line domain.CartLine) error {
	r.mu.Lock()
	r.addCalls++
	if r.addErr != nil {
		r.mu.Unlock()
		return r.addErr
	}
	if r.failAddAfter >= 0 && r.addCalls > r.failAddAfter {
		r.mu.Unlock()
		return errors.New("network down")
	}
	lines := r.lines[userID]
	found := false
	for i := range lines {
		if lines[i].IdentityKey == line.IdentityKey {
			lines[i].Quantity += line.Quantity
			found = true
		}
	}
	if !found {
		lines = append(lines, line)
	}
	r.lines[userID] = lines
	r.mu.Unlock()
	r.publish(userID)
	return nil
}

func (r *stubRemote) RemoveLine(_ context.Context, userID, key string) error {
	r.mu.Lock()
	if r.removeErr != nil {
		r.mu.Unlock()
		return r.removeErr
	}
	var kept []domain.CartLine
	for _, l := range r.lines[userID] {
		if l.IdentityKey != key {
			kept = append(kept, l)
		}
	}
	r.lines[userID] = kept
	r.mu.Unlock()
	r.publish(userID)
	return nil
}

func (r *stubRemote) SetQuantity(ctx context.Context, userID, key string, quantity int) error {
	if quantity <= 0 {
		return r.RemoveLine(ctx, userID, key)
	}
	r.mu.Lock()
	if r.setErr != nil {
		r.mu.Unlock()
		return r.setErr
	}
	found := false
	for i := range r.lines[userID] {
		if r.lines[userID][i].IdentityKey == key {
			r.lines[userID][i].Quantity = quantity
			found = true
		}
	}
	r.mu.Unlock()
	if !found {
		return domain.ErrNotFound
	}
	r.publish(userID)
	return nil
}

func (r *stubRemote) Clear(_ context.Context, userID string) error {
	r.mu.Lock()
	if r.clearErr != nil {
		r.mu.Unlock()
		return r.clearErr
	}
	delete(r.lines, userID)
	r.mu.Unlock()
	r.publish(userID)
	return nil
}

func (r *stubRemote) Subscribe(_ context.Context, userID string, fn func([]domain.CartLine)) (func(), error) {
	r.mu.Lock()
	if r.subscribeErr != nil {
		r.mu.Unlock()
		return nil, r.subscribeErr
	}
	id := r.nextSub
	r.nextSub++
	r.subs[id] = stubSub{userID: userID, fn: fn}
	snapshot := append([]domain.CartLine(nil), r.lines[userID]...)
	r.mu.Unlock()
	fn(snapshot)
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}, nil
}

func (r *stubRemote) publish(userID string) {
	r.mu.Lock()
	snapshot := append([]domain.CartLine(nil), r.lines[userID]...)
	var fns []func([]domain.CartLine)
	for _, s := range r.subs {
		if s.userID == userID {
			fns = append(fns, s.fn)
		}
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}

// putSilently stores a line without notifying subscribers, like a write
// whose change notification has not arrived yet.
func (r *stubRemote) putSilently(userID string, line domain.CartLine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[userID] = append(r.lines[userID], line)
}

func (r *stubRemote) subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *stubRemote) quantities(userID string) map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, l := range r.lines[userID] {
		out[l.IdentityKey] = l.Quantity
	}
	return out
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(msg domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) count(kind domain.NotificationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, msg := range n.sent {
		if msg.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Message)
	}
	return out
}

type stubIdentity struct {
	mu       sync.Mutex
	userID   string
	watchers map[int]func(string)
	next     int
}

func newStubIdentity() *stubIdentity {
	return &stubIdentity{watchers: make(map[int]func(string))}
}

func (i *stubIdentity) Current() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.userID, i.userID != ""
}

func (i *stubIdentity) Watch(fn func(string)) func() {
	i.mu.Lock()
	defer i.mu.Unlock()
	id := i.next
	i.next++
	i.watchers[id] = fn
	return func() {
		i.mu.Lock()
		delete(i.watchers, id)
		i.mu.Unlock()
	}
}

func (i *stubIdentity) set(userID string) {
	i.mu.Lock()
	i.userID = userID
	fns := make([]func(string), 0, len(i.watchers))
	for _, fn := range i.watchers {
		fns = append(fns, fn)
	}
	i.mu.Unlock()
	for _, fn := range fns {
		fn(userID)
	}
}

func keysOf(lines []domain.CartLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.IdentityKey)
	}
	sort.Strings(out)
	return out
}

func int64Ptr(v int64) *int64 {
	return &v
}
