package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"buildmart/internal/clientstore"
	"buildmart/internal/domain"
	"buildmart/internal/id"
	"buildmart/internal/notify"
	cartsvc "buildmart/internal/service/cart"
	customersvc "buildmart/internal/service/customer"
	"go.uber.org/zap"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrAlreadySignedIn = errors.New("already signed in")
)

// Session is one storefront visitor: a guest storage scope, an identity,
// a notification inbox and the cart facade bound to them.
type Session struct {
	ID        string
	CreatedAt time.Time
	Cart      *cartsvc.Facade
	Identity  *Identity
	Inbox     *notify.Inbox

	scope *clientstore.Scope

	mu          sync.Mutex
	lastSeen    time.Time
	touchedAt   time.Time
	accessToken string
	customer    *domain.Customer
}

// Customer returns the signed-in customer, or nil for a guest.
func (s *Session) Customer() *domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// ExpiresAt is when the session lapses unless used again.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen.Add(ttl)
}

type authenticator interface {
	Login(ctx context.Context, email, password string) (*customersvc.Session, error)
	Revoke(ctx context.Context, token string) error
}

type facadeFactory interface {
	NewFacade(storage cartsvc.Storage, identity cartsvc.Identity, notifier cartsvc.Notifier) *cartsvc.Facade
}

// Manager owns live sessions. Sessions expire after ttl without use.
type Manager struct {
	carts  facadeFactory
	auth   authenticator
	store  clientstore.Store
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(carts facadeFactory, auth authenticator, store clientstore.Store, ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		carts:    carts,
		auth:     auth,
		store:    store,
		logger:   logger,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// TTL is the idle lifetime of a session.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a guest session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	sessionID, err := id.Generate("sess")
	if err != nil {
		return nil, err
	}
	return m.open(sessionID), nil
}

// Resume returns the session with sessionID, reopening it when the process
// no longer holds it. Only sessions whose guest cart is still stored are
// reopened; any other id is ErrNotFound, so clients cannot mint sessions
// by inventing ids.
func (m *Manager) Resume(ctx context.Context, sessionID string) (*Session, error) {
	if s, err := m.Get(sessionID); err == nil {
		return s, nil
	}
	if !validID(sessionID) {
		return nil, ErrNotFound
	}
	_, stored, err := clientstore.Scoped(m.store, sessionID).Get(cartsvc.GuestCartKey)
	if err != nil {
		return nil, fmt.Errorf("read guest storage: %w", err)
	}
	if !stored {
		return nil, ErrNotFound
	}
	s := m.open(sessionID)
	m.touchGuest(s)
	return s, nil
}

func (m *Manager) open(sessionID string) *Session {
	now := m.now()
	inbox := notify.NewInbox(notify.DefaultCapacity)
	identity := NewIdentity()
	scope := clientstore.Scoped(m.store, sessionID)
	logger := m.logger.With(zap.String("session_id", sessionID))

	s := &Session{
		ID:        sessionID,
		CreatedAt: now,
		Identity:  identity,
		Inbox:     inbox,
		scope:     scope,
		lastSeen:  now,
		touchedAt: now,
	}
	s.Cart = m.carts.NewFacade(scope, identity, notify.Multi{inbox, notify.NewLog(logger)})

	m.mu.Lock()
	if existing, ok := m.sessions[sessionID]; ok {
		m.mu.Unlock()
		s.Cart.Close()
		return existing
	}
	m.sessions[sessionID] = s
	m.mu.Unlock()

	m.logger.Info("session opened", zap.String("session_id", sessionID))
	return s
}

// Get returns a live session and extends its expiry.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	s.mu.Lock()
	expired := now.Sub(s.lastSeen) > m.ttl
	touch := false
	if !expired {
		s.lastSeen = now
		touch = now.Sub(s.touchedAt) >= m.ttl/4
		if touch {
			s.touchedAt = now
		}
	}
	s.mu.Unlock()

	if expired {
		m.expire(context.Background(), s)
		return nil, ErrNotFound
	}
	if touch {
		m.touchGuest(s)
	}
	return s, nil
}

// touchGuest keeps the stored guest cart alive as long as the session.
func (m *Manager) touchGuest(s *Session) {
	if err := s.scope.Touch(cartsvc.GuestCartKey); err != nil {
		m.logger.Warn("session: refresh guest storage failed", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// Delete ends the session: signs out, closes the cart and drops the guest storage scope.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	m.revoke(ctx, s)
	s.Cart.Close()
	if err := s.scope.Purge(); err != nil {
		m.logger.Warn("session: purge guest storage failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	m.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Login authenticates the visitor and switches the cart to the customer's
// account cart. A non-empty guest cart is merged before Login returns.
func (m *Manager) Login(ctx context.Context, sessionID, email, password string) (*customersvc.Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if _, signedIn := s.Identity.Current(); signedIn {
		return nil, ErrAlreadySignedIn
	}

	auth, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accessToken = auth.AccessToken
	s.customer = auth.Customer
	s.mu.Unlock()

	s.Identity.Set(auth.Customer.ID)
	m.logger.Info("session signed in", zap.String("session_id", sessionID), zap.String("customer_id", auth.Customer.ID))
	return auth, nil
}

// Logout signs the visitor out; the cart falls back to the guest cart.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	if _, signedIn := s.Identity.Current(); !signedIn {
		return ErrNotSignedIn
	}
	m.revoke(ctx, s)
	s.Identity.Clear()
	m.logger.Info("session signed out", zap.String("session_id", sessionID))
	return nil
}

// Sweep closes sessions idle for longer than the ttl and returns how many.
// Their guest storage is kept so Resume can restore the guest cart.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()
	var stale []*Session
	m.mu.RLock()
	for _, s := range m.sessions {
		s.mu.Lock()
		if now.Sub(s.lastSeen) > m.ttl {
			stale = append(stale, s)
		}
		s.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, s := range stale {
		m.expire(ctx, s)
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.logger.Info("session sweep", zap.Int("expired", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// CloseAll closes every session, for shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Cart.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) expire(ctx context.Context, s *Session) {
	m.mu.Lock()
	current, ok := m.sessions[s.ID]
	if !ok || current != s {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	m.revoke(ctx, s)
	s.Cart.Close()
	m.logger.Info("session expired", zap.String("session_id", s.ID))
}

func (m *Manager) revoke(ctx context.Context, s *Session) {
	s.mu.Lock()
	token := s.accessToken
	s.accessToken = ""
	s.customer = nil
	s.mu.Unlock()
	if token == "" || m.auth == nil {
		return
	}
	if err := m.auth.Revoke(ctx, token); err != nil {
		m.logger.Warn("session: revoke token failed", zap.String("session_id", s.ID), zap.Error(err))
	}
}

// validID accepts ids shaped like the ones Create issues.
func validID(sessionID string) bool {
	const prefix = "sess-"
	if len(sessionID) != len(prefix)+21 || sessionID[:len(prefix)] != prefix {
		return false
	}
	for _, r := range sessionID[len(prefix):] {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
