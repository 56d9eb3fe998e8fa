package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultSessionLifetime = 24 * time.Hour

	sessionTokenBytes  = 32
	maxUserAgentLength = 500
)

var (
	// ErrNoSession covers both unknown and expired tokens so callers cannot
	// tell them apart.
	ErrNoSession              = errors.New("no valid session")
	ErrInvalidSessionLifetime = errors.New("session lifetime must be positive")
)

type SessionOptions struct {
	// Lifetime defaults to the manager's lifetime when zero.
	Lifetime  time.Duration
	IPAddress string
	UserAgent string
}

type SessionInfo struct {
	Principal domain.Principal
	ExpiresAt time.Time
}

// SessionManager issues and checks opaque session tokens. Only the SHA-256
// of a token reaches the store.
type SessionManager struct {
	repo            repository.SessionRepository
	defaultLifetime time.Duration
	now             func() time.Time
}

func NewSessionManager(repo repository.SessionRepository, defaultLifetime time.Duration) *SessionManager {
	if defaultLifetime <= 0 {
		defaultLifetime = DefaultSessionLifetime
	}
	return &SessionManager{
		repo:            repo,
		defaultLifetime: defaultLifetime,
		now:             time.Now,
	}
}

// SetClock overrides the time source. Expiry checks, touches and reaping
// all read from it.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

func (m *SessionManager) clock() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Create deletes every session of userID and then stores a fresh one. A
// failure between the two steps leaves the user with no session at all.
func (m *SessionManager) Create(ctx context.Context, userID string, opts SessionOptions) (string, error) {
	lifetime := opts.Lifetime
	if lifetime == 0 {
		lifetime = m.defaultLifetime
	}
	if lifetime < 0 {
		return "", ErrInvalidSessionLifetime
	}

	now := m.clock()
	token, err := newSessionToken(now)
	if err != nil {
		return "", err
	}

	if err := m.repo.DeleteByUserID(ctx, userID); err != nil {
		return "", fmt.Errorf("delete previous sessions: %w", err)
	}

	session := &domain.Session{
		ID:             uuid.New(),
		TokenHash:      hashSessionToken(token),
		UserID:         userID,
		ExpiresAt:      now.Add(lifetime),
		CreatedAt:      now,
		LastAccessedAt: now,
		IPAddress:      ipAddress(opts.IPAddress),
		UserAgent:      optional(opts.UserAgent, maxUserAgentLength),
	}

	if err := m.repo.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return token, nil
}

// Validate returns the principal behind a live token and records the access.
func (m *SessionManager) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	info, err := m.Info(ctx, token)
	if err != nil {
		return nil, err
	}
	return &info.Principal, nil
}

// Info is Validate plus the session expiry.
func (m *SessionManager) Info(ctx context.Context, token string) (*SessionInfo, error) {
	now := m.clock()
	session, err := m.live(ctx, token, now)
	if err != nil {
		return nil, err
	}

	if err := m.repo.Touch(ctx, session.ID, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}

	return &SessionInfo{
		Principal: domain.Principal{UserID: session.UserID, Role: domain.RoleAdmin},
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Extend sets a live session's expiry to now+hours. It reports false for
// unknown or expired tokens and for hours outside 1..MaxSessionHours, and
// never revives a dead session.
func (m *SessionManager) Extend(ctx context.Context, token string, hours int) (bool, error) {
	if hours <= 0 || hours > domain.MaxSessionHours {
		return false, nil
	}

	now := m.clock()
	session, err := m.live(ctx, token, now)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	if !expiresAt.After(now) {
		return false, nil
	}
	ok, err := m.repo.UpdateExpiry(ctx, session.ID, expiresAt, now)
	if err != nil {
		return false, fmt.Errorf("extend session: %w", err)
	}
	return ok, nil
}

// Delete removes the session for token. Unknown tokens are not an error.
func (m *SessionManager) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.repo.DeleteByTokenHash(ctx, hashSessionToken(token))
}

// DeleteAllForUser ends every session userID holds.
func (m *SessionManager) DeleteAllForUser(ctx context.Context, userID string) error {
	return m.repo.DeleteByUserID(ctx, userID)
}

// Reap purges expired sessions and returns how many were removed.
func (m *SessionManager) Reap(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.clock())
}

func (m *SessionManager) live(ctx context.Context, token string, now time.Time) (*domain.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	session, err := m.repo.GetByTokenHash(ctx, hashSessionToken(token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if session.ExpiredAt(now) {
		return nil, ErrNoSession
	}
	return session, nil
}

// newSessionToken returns "<base36 unix millis>_<64 hex chars>".
func newSessionToken(now time.Time) (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "_" + hex.EncodeToString(buf), nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

var ipValidator = validator.New()

// ipAddress keeps only IPv4/IPv6 literals and the loopback host name.
func ipAddress(value string) *string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "localhost") {
		value = "localhost"
		return &value
	}
	if value == "" || ipValidator.Var(value, "ip") != nil {
		return nil
	}
	return &value
}

func optional(value string, maxRunes int) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if utf8.RuneCountInString(value) > maxRunes {
		value = string([]rune(value)[:maxRunes])
	}
	return &value
}
