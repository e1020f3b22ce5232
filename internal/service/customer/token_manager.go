package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"buildmart/internal/domain"
	tokenrepo "buildmart/internal/repository/token"
)

type tokenMeta struct {
	CustomerID string
	ExpiresAt  time.Time
}

type tokenManager struct {
	repo tokenrepo.Repository
	now  func() time.Time
}

func newTokenManager(repo tokenrepo.Repository) *tokenManager {
	return &tokenManager{repo: repo, now: time.Now}
}

func (m *tokenManager) Issue(ctx context.Context, customerID, kind string, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:      token,
			CustomerID: customerID,
			Kind:       kind,
			ExpiresAt:  expiresAt,
		})
		if err == nil {
			return token, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("token collision")
}

func (m *tokenManager) Validate(ctx context.Context, token string) (tokenMeta, bool) {
	meta, err := m.repo.Get(ctx, token)
	if err != nil {
		return tokenMeta{}, false
	}
	if meta.Kind != "access" || meta.CustomerID == "" {
		return tokenMeta{}, false
	}
	if m.now().After(meta.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return tokenMeta{}, false
	}
	return tokenMeta{CustomerID: meta.CustomerID, ExpiresAt: meta.ExpiresAt}, true
}

func (m *tokenManager) Revoke(ctx context.Context, token string) error {
	return m.repo.Delete(ctx, token)
}

func (m *tokenManager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
