// Package service provides business logic for administrator authentication
// and report management, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atinyakov/ReportDesk/internal/auth"
	"github.com/atinyakov/ReportDesk/internal/models"
	"github.com/atinyakov/ReportDesk/internal/repository"
)

// AdminRepository defines the persistence operations
// required by the authentication service.
type AdminRepository interface {
	// GetByUsername returns the administrator or repository.ErrNotFound.
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	// CreateIfMissing inserts an administrator unless the username exists.
	CreateIfMissing(ctx context.Context, username, passwordHash string) (bool, error)
	// UpdatePasswordHash overwrites the stored hash.
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}

// TokenIssuer signs bearer tokens for authenticated administrators.
type TokenIssuer interface {
	Issue(adminID int64, username string) (string, error)
}

// LoginResult is returned on successful login.
type LoginResult struct {
	Token    string
	Username string
}

// AuthService implements administrator login and credential maintenance.
type AuthService struct {
	repo   AdminRepository
	tokens TokenIssuer

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs an AuthService.
func NewAuthService(repo AdminRepository, tokens TokenIssuer) *AuthService {
	return &AuthService{repo: repo, tokens: tokens}
}

// Login checks the credentials and issues a token. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	admin, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Spend the same bcrypt time as a real comparison.
			auth.ComparePassword(password, s.unknownUserHash())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !auth.ComparePassword(password, admin.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(admin.ID, admin.Username)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &LoginResult{Token: token, Username: admin.Username}, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = auth.HashPassword("unknown-user-placeholder")
	})
	return s.dummyHash
}

// EnsureAdmin creates the administrator with the given password unless the
// username is already present. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	created, err := s.repo.CreateIfMissing(ctx, username, hash)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	return created, nil
}

// SetPassword re-hashes password, overwrites the stored hash and then
// re-reads the account to confirm the new hash verifies.
func (s *AuthService) SetPassword(ctx context.Context, username, password string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := s.repo.UpdatePasswordHash(ctx, username, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("set password: %w", err)
	}
	return s.VerifyPassword(ctx, username, password)
}

// VerifyPassword compares password against the stored hash for username.
func (s *AuthService) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	admin, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("verify password: %w", err)
	}
	return auth.ComparePassword(password, admin.PasswordHash), nil
}
