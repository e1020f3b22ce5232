package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"buildmart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Live adds change subscriptions to a Repository. A single pooled
// connection LISTENs on the change channel; each notification re-reads the
// user's lines and hands the full list to that user's subscribers.
type Live struct {
	Repository

	pool    *pgxpool.Pool
	channel string
	logger  *zap.Logger
	retry   time.Duration

	mu   sync.Mutex
	next uint64
	subs map[string]map[uint64]*subscriber
}

type subscriber struct {
	mu sync.Mutex
	fn func([]domain.CartLine)
}

func NewLive(pool *pgxpool.Pool, repo Repository, channel string, logger *zap.Logger) *Live {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Live{
		Repository: repo,
		pool:       pool,
		channel:    channel,
		logger:     logger,
		retry:      2 * time.Second,
		subs:       make(map[string]map[uint64]*subscriber),
	}
}

// Subscribe registers fn for userID and delivers the current lines before
// returning. The returned func releases the subscription; it is safe to call
// more than once.
func (l *Live) Subscribe(ctx context.Context, userID string, fn func([]domain.CartLine)) (func(), error) {
	sub := &subscriber{fn: fn}

	l.mu.Lock()
	id := l.next
	l.next++
	if l.subs[userID] == nil {
		l.subs[userID] = make(map[uint64]*subscriber)
	}
	l.subs[userID][id] = sub
	l.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs[userID], id)
			if len(l.subs[userID]) == 0 {
				delete(l.subs, userID)
			}
			l.mu.Unlock()
		})
	}

	if err := l.deliver(ctx, userID, sub); err != nil {
		unsubscribe()
		return nil, fmt.Errorf("initial cart snapshot: %w", err)
	}
	return unsubscribe, nil
}

// Run listens for changes until ctx is done, reconnecting after errors.
func (l *Live) Run(ctx context.Context) error {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.logger.Warn("cart live: listener stopped, reconnecting", zap.Error(err), zap.Duration("retry", l.retry))
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Live) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("cart live: listening", zap.String("channel", l.channel))

	// Notifications sent while disconnected are lost; resend snapshots.
	l.resync(ctx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, n.Payload)
	}
}

func (l *Live) dispatch(ctx context.Context, userID string) {
	for _, sub := range l.subscribersOf(userID) {
		if err := l.deliver(ctx, userID, sub); err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Warn("cart live: snapshot failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

func (l *Live) resync(ctx context.Context) {
	l.mu.Lock()
	users := make([]string, 0, len(l.subs))
	for userID := range l.subs {
		users = append(users, userID)
	}
	l.mu.Unlock()

	for _, userID := range users {
		l.dispatch(ctx, userID)
	}
}

// deliver reads and hands over a snapshot while holding the subscriber lock,
// so a subscriber never sees an older list after a newer one.
func (l *Live) deliver(ctx context.Context, userID string, sub *subscriber) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	lines, err := l.List(ctx, userID)
	if err != nil {
		return err
	}
	sub.fn(lines)
	return nil
}

func (l *Live) subscribersOf(userID string) []*subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*subscriber, 0, len(l.subs[userID]))
	for _, sub := range l.subs[userID] {
		out = append(out, sub)
	}
	return out
}

// Subscribers returns the number of live subscriptions.
func (l *Live) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, subs := range l.subs {
		n += len(subs)
	}
	return n
}
