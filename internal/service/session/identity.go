package session

import "sync"

// Identity is the observable signed-in user of one session. Watchers run
// synchronously on the goroutine that changes the value, outside the lock.
type Identity struct {
	mu       sync.Mutex
	userID   string
	watchers map[uint64]func(string)
	next     uint64
}

func NewIdentity() *Identity {
	return &Identity{watchers: make(map[uint64]func(string))}
}

// Current returns the signed-in user id, if any.
func (i *Identity) Current() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.userID, i.userID != ""
}

// Watch calls fn with every later change. The returned func stops it.
func (i *Identity) Watch(fn func(string)) func() {
	i.mu.Lock()
	id := i.next
	i.next++
	i.watchers[id] = fn
	i.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			i.mu.Lock()
			delete(i.watchers, id)
			i.mu.Unlock()
		})
	}
}

// Set changes the signed-in user; an empty id signs out. Setting the
// current value again notifies nobody.
func (i *Identity) Set(userID string) {
	i.mu.Lock()
	if i.userID == userID {
		i.mu.Unlock()
		return
	}
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

// Clear signs out.
func (i *Identity) Clear() {
	i.Set("")
}
