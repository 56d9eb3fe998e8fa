package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dom/blog/internal/config"
	"github.com/dom/blog/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	sessions *SessionManager
	cfg      *config.Config
}

func NewAuthService(sessions *SessionManager, cfg *config.Config) *AuthService {
	return &AuthService{
		sessions: sessions,
		cfg:      cfg,
	}
}

type LoginInput struct {
	Username  string
	Password  string
	IPAddress string
	UserAgent string
}

type AuthResult struct {
	User      domain.AuthUser
	Token     string
	ExpiresAt time.Time
}

type SessionStatus struct {
	User      domain.AuthUser
	ExpiresAt time.Time
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	if !s.ValidateCredentials(input.Username, input.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, domain.AdminUserID, SessionOptions{
		Lifetime:  s.cfg.SessionLifetime(),
		IPAddress: input.IPAddress,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	info, err := s.sessions.Info(ctx, token)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:      s.userFor(info.Principal),
		Token:     token,
		ExpiresAt: info.ExpiresAt,
	}, nil
}

// ValidateCredentials checks the admin username and password. The bcrypt
// comparison always runs so a wrong username costs the same as a wrong
// password.
func (s *AuthService) ValidateCredentials(username, password string) bool {
	usernameOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password))
	return usernameOK && passwordErr == nil
}

func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.AuthUser, error) {
	principal, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	user := s.userFor(*principal)
	return &user, nil
}

func (s *AuthService) Session(ctx context.Context, token string) (*SessionStatus, error) {
	info, err := s.sessions.Info(ctx, token)
	if err != nil {
		return nil, err
	}
	return &SessionStatus{
		User:      s.userFor(info.Principal),
		ExpiresAt: info.ExpiresAt,
	}, nil
}

func (s *AuthService) Extend(ctx context.Context, token string, hours int) (bool, error) {
	return s.sessions.Extend(ctx, token, hours)
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

func (s *AuthService) LogoutEverywhere(ctx context.Context) error {
	return s.sessions.DeleteAllForUser(ctx, domain.AdminUserID)
}

func (s *AuthService) userFor(principal domain.Principal) domain.AuthUser {
	return domain.AuthUser{
		Name: s.cfg.AdminName,
		Role: principal.Role,
	}
}
