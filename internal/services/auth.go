package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coursehub-lms/apiserver/internal/events"
	"github.com/coursehub-lms/apiserver/internal/store"
	"github.com/coursehub-lms/apiserver/types"
)

// ErrInvalidCredentials is returned for every failed login, whether the
// email is unknown or the password is wrong. Callers must surface it
// verbatim so the two cases are indistinguishable to clients.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserStore defines the persistence operations the auth flows need.
type UserStore interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hashed string) bool
}

// TokenIssuer mints signed access tokens for a user.
type TokenIssuer interface {
	Issue(user types.User) (string, error)
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// AuthService composes the credential store, password hasher, and token
// issuer into the registration and login flows.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	events *events.Publisher
	logger *slog.Logger

	// dummyHash is compared against when a login targets an unknown
	// email, so both failure paths cost one bcrypt verification.
	dummyHash string
}

// NewAuthService constructs an AuthService with explicit collaborators.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, publisher *events.Publisher, logger *slog.Logger) (*AuthService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dummyHash, err := hasher.Hash("coursehub")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		events:    publisher,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// Register creates a user account and mints its first token.
//
// The password is hashed before any persistence attempt; plaintext never
// reaches the store. A duplicate email aborts with store.ErrConflict
// before a token is minted. Any other store failure propagates as an
// error, never as a silent nil result.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (types.User, string, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return types.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, types.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        input.Email,
		Role:         types.RoleStudent,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, "", err
		}
		return types.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return types.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	s.events.Emit(ctx, events.UserRegistered, map[string]any{
		"user_id": user.ID,
		"role":    user.Role,
	})

	return user, token, nil
}

// Login verifies credentials and mints a token. Unknown emails and
// wrong passwords both return ErrInvalidCredentials; neither path skips
// the hash comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return token, nil
}
