package auth

import (
	"context"
	"errors"
	"strings"
	"time"
)

type Service struct {
	Store    StoreAPI
	Secret   string
	TokenTTL time.Duration
}

func NewService(store StoreAPI, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Secret: secret, TokenTTL: ttl}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Login verifies credentials and issues a bearer token. Unknown users and
// wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Email: user.Email, Role: user.Role}, s.TokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, ExpiresAt: time.Now().Add(s.TokenTTL), User: user}, nil
}

func (s *Service) CreateUser(ctx context.Context, email, password, role string) (User, error) {
	if !ValidRole(role) {
		return User{}, ErrInvalidRole
	}
	if len(password) < 8 {
		return User{}, ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.Store.CreateUser(ctx, strings.ToLower(strings.TrimSpace(email)), hash, role)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.Store.ListUsers(ctx)
}

func (s *Service) Deactivate(ctx context.Context, userID string) error {
	return s.Store.SetActive(ctx, userID, false)
}

// WithPassword builds a User carrying a password hash, for store
// implementations outside this package.
func WithPassword(u User, hash string) User {
	u.password = hash
	return u
}
