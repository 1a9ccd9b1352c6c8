// Package identity holds registered users and the active session.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"perfect-traders-go/internal/models"
	"perfect-traders-go/internal/storage"

	"go.uber.org/zap"
)

var (
	// ErrTermsNotAccepted is returned when signing up without accepting the terms.
	ErrTermsNotAccepted = errors.New("terms and conditions must be accepted")

	// ErrEmailRequired is returned when the email is blank after trimming.
	ErrEmailRequired = errors.New("email is required")

	// ErrEmailTaken is returned when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")

	// ErrUserNotFound is returned when no user matches the given email.
	ErrUserNotFound = errors.New("user not found")
)

// AccountGateway notifies the external service seam about new registrations.
// The interface is defined here, on the consumer side.
type AccountGateway interface {
	RegisterAccount(ctx context.Context, email string) error
}

// Store holds the user list and the single active session. It is safe for
// concurrent use; every mutation is persisted through the storage adapter.
type Store struct {
	mu      sync.RWMutex
	users   []models.User
	session models.Session
	store   *storage.Store
	gateway AccountGateway
	logger  *zap.Logger
}

// NewStore creates a Store, restoring persisted users and any active
// session.
func NewStore(store *storage.Store, gateway AccountGateway, logger *zap.Logger) *Store {
	s := &Store{
		store:   store,
		gateway: gateway,
		logger:  logger.Named("identity"),
	}
	s.users = storage.Read(store, storage.KeyUsers, []models.User{})
	s.session = storage.Read(store, storage.KeySession, models.Session{})

	s.logger.Info("Identity store loaded",
		zap.Int("users", len(s.users)),
		zap.Bool("session_active", s.session.Active()))
	return s
}

// Signup registers a new user and starts a session for them. The email is
// compared case-insensitively against existing users.
func (s *Store) Signup(ctx context.Context, phone, email string, termsAccepted bool) (models.Session, error) {
	if !termsAccepted {
		return models.Session{}, ErrTermsNotAccepted
	}
	normalized := normalizeEmail(email)
	if normalized == "" {
		return models.Session{}, ErrEmailRequired
	}
	phone = strings.TrimSpace(phone)

	s.mu.Lock()

	for _, user := range s.users {
		if user.Email == normalized {
			s.mu.Unlock()
			return models.Session{}, ErrEmailTaken
		}
	}

	user := models.User{
		Email:      normalized,
		Phone:      phone,
		SignedUpAt: time.Now().UnixMilli(),
	}
	s.users = append(s.users, user)
	s.session = models.Session{Email: user.Email, Phone: user.Phone}
	s.store.Write(storage.KeyUsers, s.users)
	s.store.Write(storage.KeySession, s.session)
	session := s.session
	s.mu.Unlock()

	// Registration with the external service is best-effort; the local
	// account is the source of truth. It runs outside the lock so a slow
	// gateway cannot stall concurrent identity reads.
	if err := s.gateway.RegisterAccount(ctx, user.Email); err != nil {
		s.logger.Warn("Account registration call failed", zap.String("email", user.Email), zap.Error(err))
	}

	s.logger.Info("User signed up", zap.String("email", user.Email))
	return session, nil
}

// Login starts a session for an existing user looked up by email.
func (s *Store) Login(email string) (models.Session, error) {
	normalized := normalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == normalized {
			s.session = models.Session{Email: user.Email, Phone: user.Phone}
			s.store.Write(storage.KeySession, s.session)
			s.logger.Info("User logged in", zap.String("email", user.Email))
			return s.session, nil
		}
	}
	return models.Session{}, ErrUserNotFound
}

// Logout clears the active session unconditionally.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = models.Session{}
	s.store.Delete(storage.KeySession)
	s.logger.Info("Session cleared")
}

// Active returns the current session and whether anyone is logged in.
func (s *Store) Active() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.session.Active()
}

// Users returns a copy of the registered user list, in signup order.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
