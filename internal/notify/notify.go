// Package notify delivers user-facing cart messages.
package notify

import (
	"context"
	"sync"
	"time"

	"buildmart/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity bounds how many undelivered notifications an Inbox keeps.
const DefaultCapacity = 50

// Inbox queues notifications of one session for polling and streams them to
// live listeners. When full, the oldest pending notification is dropped.
type Inbox struct {
	mu        sync.Mutex
	capacity  int
	pending   []domain.Notification
	listeners map[uint64]chan domain.Notification
	next      uint64
	now       func() time.Time
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{
		capacity:  capacity,
		listeners: make(map[uint64]chan domain.Notification),
		now:       time.Now,
	}
}

// Notify stamps n with an id and time when missing and delivers it.
// It never blocks; slow listeners miss messages but the queue keeps them.
func (i *Inbox) Notify(n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = i.now().UTC()
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.pending) == i.capacity {
		i.pending = i.pending[1:]
	}
	i.pending = append(i.pending, n)
	for _, ch := range i.listeners {
		select {
		case ch <- n:
		default:
		}
	}
}

// Drain returns and clears the pending notifications, oldest first.
func (i *Inbox) Drain() []domain.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := i.pending
	i.pending = nil
	if out == nil {
		out = []domain.Notification{}
	}
	return out
}

// Listen streams notifications sent after the call until ctx is done; the
// channel is closed then.
func (i *Inbox) Listen(ctx context.Context) <-chan domain.Notification {
	ch := make(chan domain.Notification, 16)

	i.mu.Lock()
	id := i.next
	i.next++
	i.listeners[id] = ch
	i.mu.Unlock()

	go func() {
		<-ctx.Done()
		i.mu.Lock()
		delete(i.listeners, id)
		close(ch)
		i.mu.Unlock()
	}()
	return ch
}

// Log writes notifications to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

func (l *Log) Notify(n domain.Notification) {
	fields := []zap.Field{zap.String("kind", string(n.Kind)), zap.String("message", n.Message)}
	if n.Kind == domain.NotificationError {
		l.logger.Warn("notification", fields...)
		return
	}
	l.logger.Debug("notification", fields...)
}

// Notifier is the sending side shared by Inbox, Log and Multi.
type Notifier interface {
	Notify(domain.Notification)
}

// Multi sends every notification to each of its notifiers in order.
type Multi []Notifier

func (m Multi) Notify(n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	for _, target := range m {
		target.Notify(n)
	}
}
