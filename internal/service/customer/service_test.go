package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"buildmart/internal/domain"
	tokenrepo "buildmart/internal/repository/token"
)

// memoryRepo is a lightweight in-memory customer repository for tests.
type memoryRepo struct {
	byEmail map[string]domain.Customer
}

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]domain.Customer)}
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

func (r *memoryTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if _, exists := r.byEmail[c.Email]; exists {
		return nil, domain.ErrAlreadyExists
	}
	clone := c
	if clone.ID == "" {
		clone.ID = "cust-" + c.Email
	}
	r.byEmail[clone.Email] = clone
	return &clone, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	if c, ok := r.byEmail[email]; ok {
		clone := c
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	for _, c := range r.byEmail {
		if c.ID == id {
			clone := c
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func TestSignupAndLogin_SucceedsWithTrimmedPassword(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()

	customer, err := svc.Signup(ctx, SignupInput{
		Email:     " User@Example.com",
		Password:  " Abcdefg1 ",
		FirstName: "T",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("signup returned error: %v", err)
	}
	if customer == nil || customer.Email != "user@example.com" {
		t.Fatalf("unexpected customer %+v", customer)
	}

	session, err := svc.Login(ctx, "user@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("login failed with trimmed password: %v", err)
	}
	if session.AccessToken == "" || session.RefreshToken == "" || session.AccessToken == session.RefreshToken {
		t.Fatalf("unexpected tokens %+v", session)
	}

	found, err := svc.LookupByToken(ctx, session.AccessToken)
	if err != nil || found.ID != customer.ID {
		t.Fatalf("lookup by token: %+v err=%v", found, err)
	}
	if _, err := svc.LookupByToken(ctx, session.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token must not authenticate, got %v", err)
	}
}

func TestValidatePassword_FailsOnWeakValues(t *testing.T) {
	cases := []struct {
		name string
		pass string
	}{
		{"too short", "Abc1"},
		{"no upper", "abcdefg1"},
		{"no lower", "ABCDEFG1"},
		{"no digit", "Abcdefgh"},
	}
	for _, tc := range cases {
		err := validatePassword(tc.pass, 8)
		if err == nil {
			t.Fatalf("expected error for case %s", tc.name)
		}
		if !IsValidation(err) {
			t.Fatalf("expected validation error for case %s", tc.name)
		}
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "user@example.com", Password: "Abcdefg1", FirstName: "T"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Login(ctx, "user@example.com", "wrongpass"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "missing@example.com", "Abcdefg1"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing user, got %v", err)
	}
}

func TestRevokeAndExpiry(t *testing.T) {
	tokens := newMemoryTokenRepo()
	svc := New(newMemoryRepo(), tokens, nil)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Email: "a@example.com", Password: "Abcdefg1"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	session, err := svc.Login(ctx, "a@example.com", "Abcdefg1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := svc.Revoke(ctx, session.AccessToken); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.Revoke(ctx, session.AccessToken); err != nil {
		t.Fatalf("second revoke must be ignored: %v", err)
	}
	if _, err := svc.LookupByToken(ctx, session.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}

	svc.tokens.now = func() time.Time { return time.Now().Add(365 * 24 * time.Hour) }
	n, err := svc.PurgeExpiredTokens(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected refresh token purged, got n=%d err=%v", n, err)
	}
}

func TestSignup_RequiresEmail(t *testing.T) {
	svc := New(newMemoryRepo(), newMemoryTokenRepo(), nil)
	if _, err := svc.Signup(context.Background(), SignupInput{Password: "Abcdefg1"}); !errors.Is(err, ErrEmailRequired) {
		t.Fatalf("expected email error, got %v", err)
	}
}
