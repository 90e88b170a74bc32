package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/mr1hm/pulsemap/internal/models"
	"github.com/mr1hm/pulsemap/internal/repository"
)

const (
	MinUsernameLength = 2
	MaxUsernameLength = 20
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrInvalidUsername    = fmt.Errorf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	ErrSameUsername       = errors.New("new username must be different from current username")
	ErrPasswordRequired   = errors.New("current and new passwords are required")
	ErrSamePassword       = errors.New("new password must be different from current password")
	ErrSessionNotFound    = errors.New("session not found")
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	return nil
}

type Session struct {
	Token     string
	UserID    int64
	Username  string
	ExpiresAt time.Time
}

// Service authenticates the admin account and tracks its sessions in memory.
type Service struct {
	repo  repository.AdminRepository
	clock clockwork.Clock
	ttl   time.Duration

	mu       sync.Mutex
	sessions map[string]Session
}

func NewService(repo repository.AdminRepository, ttl time.Duration, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		repo:     repo,
		clock:    clock,
		ttl:      ttl,
		sessions: make(map[string]Session),
	}
}

// TTL is the lifetime of a new session.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Bootstrap creates the admin account when none exists yet.
func (s *Service) Bootstrap(ctx context.Context, username, password string) error {
	n, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		return nil
	}
	if err := ValidateUsername(username); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.CreateAdmin(ctx, &models.AdminUser{Username: username, PasswordHash: hash}); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	slog.Info("created bootstrap admin", "username", username)
	return nil
}

func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.repo.GetAdminByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	sess := Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()

	slog.Info("admin logged in", "username", user.Username)
	return sess, nil
}

func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Session returns the live session for token.
func (s *Service) Session(token string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return Session{}, false
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		delete(s.sessions, token)
		return Session{}, false
	}
	return sess, true
}

func (s *Service) ChangeUsername(ctx context.Context, token, newUsername, currentPassword string) error {
	if err := ValidateUsername(newUsername); err != nil {
		return err
	}
	if currentPassword == "" {
		return ErrPasswordRequired
	}

	user, err := s.verify(ctx, token, currentPassword)
	if err != nil {
		return err
	}
	if newUsername == user.Username {
		return ErrSameUsername
	}
	if err := s.repo.UpdateAdminUsername(ctx, user.ID, newUsername); err != nil {
		return err
	}

	// keep every session of this user in step with the new name
	s.mu.Lock()
	for tok, sess := range s.sessions {
		if sess.UserID == user.ID {
			sess.Username = newUsername
			s.sessions[tok] = sess
		}
	}
	s.mu.Unlock()

	slog.Info("admin username changed", "from", user.Username, "to", newUsername)
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return ErrPasswordRequired
	}
	if currentPassword == newPassword {
		return ErrSamePassword
	}

	user, err := s.verify(ctx, token, currentPassword)
	if err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateAdminPassword(ctx, user.ID, hash); err != nil {
		return err
	}

	slog.Info("admin password changed", "username", user.Username)
	return nil
}

func (s *Service) verify(ctx context.Context, token, password string) (*models.AdminUser, error) {
	sess, ok := s.Session(token)
	if !ok {
		return nil, ErrSessionNotFound
	}
	user, err := s.repo.GetAdminByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrIncorrectPassword
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, ErrIncorrectPassword
	}
	return user, nil
}

// pruneLocked drops expired sessions. Callers hold s.mu.
func (s *Service) pruneLocked() {
	now := s.clock.Now()
	for tok, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, tok)
		}
	}
}
