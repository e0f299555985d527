package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crucial707/ledger/internal/models"
	"github.com/crucial707/ledger/internal/repo"
)

// ErrInvalidCredentials covers both an unknown username and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service registers users and logs them in.
type Service struct {
	Users  repo.UserStore
	Hasher *Hasher
	Issuer *Issuer
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Register stores a new user with a hashed password. Duplicates fail with repo.ErrDuplicateIdentity.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	fields := make(map[string]string)
	if username == "" {
		fields["username"] = "required"
	}
	if email == "" {
		fields["email"] = "required"
	}
	switch {
	case password == "":
		fields["password"] = "required"
	case len(password) > MaxPasswordBytes:
		fields["password"] = fmt.Sprintf("at most %d bytes", MaxPasswordBytes)
	}
	if len(fields) > 0 {
		return nil, &models.ValidationError{Fields: fields}
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		return nil, err
	}
	return s.Users.Create(ctx, username, email, hash)
}

// Login verifies credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.Users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !s.Hasher.Verify(ctx, password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.Issuer.Issue(Identity{UserID: user.ID, Username: user.Username})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}
