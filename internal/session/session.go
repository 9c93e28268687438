// Package session persists the "currently logged in" marker between
// command invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/storage"
	"github.com/google/uuid"
)

// DefaultTTL is how long a login stays valid when no TTL is configured.
const DefaultTTL = 30 * 24 * time.Hour

// Session errors.
var (
	ErrNoSession      = errors.New("no active session")
	ErrSessionExpired = errors.New("session expired")
)

// Store reads and writes the session file.
type Store struct {
	now    func() time.Time
	logger *slog.Logger
	path   string
	ttl    time.Duration
}

// NewStore returns a session store at path. A non-positive ttl uses DefaultTTL.
func NewStore(path string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		path:   path,
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default().With("component", "session"),
	}
}

// SetClock replaces the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Create starts a new session for acct, replacing any existing one.
func (s *Store) Create(acct model.Account) (*model.Session, error) {
	issued := s.now().UTC()
	sess := &model.Session{
		Token:     uuid.NewString(),
		Email:     model.NormalizeEmail(acct.Email),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(s.ttl),
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}

	if err := storage.WriteFileAtomic(s.path, 0600, func(w io.Writer) error {
		_, werr := w.Write(data)
		return werr
	}); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug("Session created", "email", sess.Email, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// Load returns the active session. A missing or unreadable file is
// ErrNoSession; an expired session is removed and reported as
// ErrSessionExpired.
func (s *Store) Load() (*model.Session, error) {
	data, err := os.ReadFile(s.path) // #nosec G304 -- configured data file
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("Session file unreadable", "error", err)
		}
		return nil, ErrNoSession
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.Token == "" || sess.Email == "" {
		s.logger.Debug("Session file invalid", "error", err)
		return nil, ErrNoSession
	}

	if sess.Expired(s.now()) {
		if err := s.Clear(); err != nil {
			s.logger.Warn("Failed to remove expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

// Clear ends the session. Clearing when no session exists is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
