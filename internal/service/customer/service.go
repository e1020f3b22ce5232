package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"buildmart/internal/domain"
	custrepo "buildmart/internal/repository/customer"
	tokenrepo "buildmart/internal/repository/token"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when email/password do not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken indicates the provided token could not be validated.
	ErrInvalidToken  = errors.New("invalid token")
	ErrEmailRequired = errors.New("email required")
)

// Service handles customer signup/login flows.
type Service struct {
	repo        custrepo.Repository
	tokens      *tokenManager
	logger      *zap.Logger
	accessTTL   time.Duration
	refreshTTL  time.Duration
	passwordMin int
}

// New creates a Service with sane defaults.
func New(repo custrepo.Repository, tokens tokenrepo.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:        repo,
		tokens:      newTokenManager(tokens),
		logger:      logger,
		accessTTL:   48 * time.Hour,
		refreshTTL:  30 * 24 * time.Hour,
		passwordMin: 8,
	}
}

// SignupInput captures fields expected by the signup endpoint.
type SignupInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// Session is the result of a successful login.
type Session struct {
	Customer     *domain.Customer
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

// Signup registers a new customer.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.Customer, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.Create(ctx, domain.Customer{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("customer signed up", zap.String("customer_id", c.ID))
	return c, nil
}

// Login validates credentials and issues an access and a refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	password = strings.TrimSpace(password)
	c, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.Issue(ctx, c.ID, "access", s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.Issue(ctx, c.ID, "refresh", s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &Session{Customer: c, AccessToken: access, RefreshToken: refresh, ExpiresIn: s.AccessTTLSeconds()}, nil
}

// LookupByToken returns the customer bound to a valid access token.
func (s *Service) LookupByToken(ctx context.Context, token string) (*domain.Customer, error) {
	meta, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	c, err := s.repo.GetByID(ctx, meta.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}

// Revoke invalidates token. Unknown tokens are ignored.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// PurgeExpiredTokens deletes tokens past their expiry.
func (s *Service) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokens.PurgeExpired(ctx)
}

// AccessTTLSeconds exposes the access token lifetime in seconds.
func (s *Service) AccessTTLSeconds() int {
	return int(s.accessTTL.Seconds())
}

// IsValidation reports whether err came from rejected signup input.
func IsValidation(err error) bool {
	var pe passwordError
	return errors.Is(err, ErrEmailRequired) || errors.As(err, &pe)
}

type passwordError string

func (e passwordError) Error() string { return string(e) }

func validatePassword(p string, min int) error {
	trimmed := strings.TrimSpace(p)
	if len(trimmed) < min {
		return passwordError(fmt.Sprintf("password must be at least %d characters", min))
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return passwordError("password must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
