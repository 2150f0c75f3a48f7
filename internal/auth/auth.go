// Package auth handles accounts, password checks and bearer sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

const tokenBytes = 32

// Service signs users up and in and resolves session tokens to users.
type Service struct {
	users    storage.UserStore
	sessions storage.SessionStore
	ttl      time.Duration
	cost     int
	now      func() time.Time
	logger   *log.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(users storage.UserStore, sessions storage.SessionStore, ttl time.Duration, logger *log.Logger, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates an account. The first account ever created is an admin.
func (s *Service) SignUp(ctx context.Context, email, password, fullName string) (core.User, error) {
	if err := core.ValidateSignUp(email, password, fullName); err != nil {
		return core.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return core.User{}, err
	}
	role := core.RoleUser
	if count == 0 {
		role = core.RoleAdmin
	}

	u := core.User{
		ID:           uuid.NewString(),
		Email:        core.NormalizeEmail(email),
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return core.User{}, err
	}

	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, u.ID, "role", u.Role)
	return u, nil
}

// SignIn checks credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (core.Session, core.User, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, storage.ErrNotFound) {
		return core.Session{}, core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.Session{}, core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Sign in rejected", log.FieldUserID, u.ID)
		return core.Session{}, core.User{}, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return core.Session{}, core.User{}, err
	}
	now := s.now().UTC()
	sess := core.Session{
		Token:     token,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return core.Session{}, core.User{}, err
	}

	s.logger.InfoContext(ctx, "User signed in", log.FieldUserID, u.ID)
	return sess, u, nil
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, token)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (core.User, error) {
	if token == "" {
		return core.User{}, ErrUnauthenticated
	}
	sess, err := s.sessions.GetSession(ctx, token, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUnauthenticated
	}
	if err != nil {
		return core.User{}, err
	}
	u, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUnauthenticated
	}
	return u, err
}

// PurgeExpired drops sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.DebugContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
