package services

import (
	"context"
	"crypto/hmac"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// SessionDuration is how long an accepted access code stays valid.
// It is the single source of truth for expiry checks and for the
// remaining-time display.
const SessionDuration = 3 * time.Hour

// How often the expiry watcher re-validates an authenticated session.
const expiryCheckInterval = time.Minute

// SessionStore persists the single session record across restarts.
// Load returns (nil, nil) when no usable record exists; implementations
// must swallow corrupt records rather than surface them.
type SessionStore interface {
	Load() (*SessionRecord, error)
	Save(rec *SessionRecord) error
	Clear() error
}

// SessionConfig carries the two access codes and the session duration.
// Codes may be given either in plain text or pre-hashed with bcrypt
// (recognized by the "$2" prefix).
type SessionConfig struct {
	ParticipantCode string
	AdminCode       string
	Duration        time.Duration
}

// SessionService owns the authentication lifecycle: validating access
// codes, tracking elapsed time against the session duration, renewing,
// and expiring. It is the sole owner of the persisted session record.
type SessionService struct {
	mu    sync.Mutex
	cfg   SessionConfig
	store SessionStore
	now   func() time.Time

	checkEvery time.Duration

	authed   bool
	role     Role
	issuedAt time.Time
}

func NewSessionService(cfg SessionConfig, store SessionStore) *SessionService {
	if cfg.Duration <= 0 {
		cfg.Duration = SessionDuration
	}
	s := &SessionService{
		cfg:        cfg,
		store:      store,
		now:        func() time.Time { return time.Now() },
		checkEvery: expiryCheckInterval,
	}
	s.restore()
	return s
}

// restore reconstructs in-memory state from the persisted record.
// Missing, corrupt, or expired records all resolve to unauthenticated.
func (s *SessionService) restore() {
	if s.store == nil {
		return
	}
	rec, err := s.store.Load()
	if err != nil {
		log.Printf("session store: load: %v", err)
		s.clearStore()
		return
	}
	if rec == nil {
		return
	}
	if rec.Role != RoleParticipant && rec.Role != RoleAdmin {
		s.clearStore()
		return
	}
	if s.now().Sub(rec.IssuedAt) >= s.cfg.Duration {
		s.clearStore()
		return
	}
	s.mu.Lock()
	s.authed = true
	s.role = rec.Role
	s.issuedAt = rec.IssuedAt
	s.mu.Unlock()
}

// Login validates code against the configured access codes. On a match
// it starts a fresh session with the matching role and persists it.
// The only caller-visible outcome of a failed attempt is false.
func (s *SessionService) Login(code string) bool {
	role, ok := s.matchCode(code)
	if !ok {
		return false
	}
	s.mu.Lock()
	s.authed = true
	s.role = role
	s.issuedAt = s.now()
	rec := &SessionRecord{IssuedAt: s.issuedAt, Role: s.role}
	s.mu.Unlock()
	s.saveStore(rec)
	return true
}

func (s *SessionService) matchCode(code string) (Role, bool) {
	// Admin first so identical codes resolve to the higher tier.
	if matchSecret(s.cfg.AdminCode, code) {
		return RoleAdmin, true
	}
	if matchSecret(s.cfg.ParticipantCode, code) {
		return RoleParticipant, true
	}
	return "", false
}

// matchSecret compares a presented code against a configured one.
// Plain codes use a constant-time equality check; codes stored as
// bcrypt hashes are verified with bcrypt.
func matchSecret(want, got string) bool {
	if want == "" {
		return false
	}
	if strings.HasPrefix(want, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(want), []byte(got)) == nil
	}
	return hmac.Equal([]byte(want), []byte(got))
}

// Logout unconditionally clears the session and its persisted record.
func (s *SessionService) Logout() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.clearStore()
}

// Renew resets the session clock to now, preserving the role. No-op
// when unauthenticated.
func (s *SessionService) Renew() {
	s.mu.Lock()
	if !s.authed {
		s.mu.Unlock()
		return
	}
	s.issuedAt = s.now()
	rec := &SessionRecord{IssuedAt: s.issuedAt, Role: s.role}
	s.mu.Unlock()
	s.saveStore(rec)
}

// CheckExpiry re-validates the session against the duration, forcing a
// logout when it has run out. Returns whether the session is still
// authenticated. Called on every authorization decision, not only on
// the watcher tick.
func (s *SessionService) CheckExpiry() bool {
	s.expireIfDue()
	return s.IsAuthenticated()
}

// expireIfDue transitions to unauthenticated when the session has run
// out; reports whether a transition happened.
func (s *SessionService) expireIfDue() bool {
	s.mu.Lock()
	if !s.authed || s.now().Sub(s.issuedAt) < s.cfg.Duration {
		s.mu.Unlock()
		return false
	}
	s.resetLocked()
	s.mu.Unlock()
	s.clearStore()
	return true
}

func (s *SessionService) resetLocked() {
	s.authed = false
	s.role = ""
	s.issuedAt = time.Time{}
}

// Remaining returns the time left before expiry; zero when
// unauthenticated or already expired.
func (s *SessionService) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return 0
	}
	left := s.cfg.Duration - s.now().Sub(s.issuedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (s *SessionService) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *SessionService) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed && s.role == RoleAdmin
}

// Role returns the current role, or "" when unauthenticated.
func (s *SessionService) Role() Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authed {
		return ""
	}
	return s.role
}

// Watch runs the periodic expiry check until ctx is cancelled. The
// returned channel receives a signal each time the watcher forces a
// logout, so the caller can tear down whatever the session gated.
func (s *SessionService) Watch(ctx context.Context) <-chan struct{} {
	expired := make(chan struct{}, 1)
	go func() {
		ticker := time.NewTicker(s.checkEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.expireIfDue() {
					select {
					case expired <- struct{}{}:
					default:
					}
				}
			}
		}
	}()
	return expired
}

func (s *SessionService) saveStore(rec *SessionRecord) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(rec); err != nil {
		log.Printf("session store: save: %v", err)
	}
}

func (s *SessionService) clearStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Clear(); err != nil {
		log.Printf("session store: clear: %v", err)
	}
}
