package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/securevibes/authgate/internal/adapter/outbound/api"
	"github.com/securevibes/authgate/internal/domain/session"
)

// AuthService errors.
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrNotSignedIn        = errors.New("not signed in")
)

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
}

// SessionManager is the part of the session store the service drives.
type SessionManager interface {
	Login(token string, user session.User) error
	Logout()
	Current() session.Session
}

// Identity describes the signed-in user as seen by the client.
type Identity struct {
	User session.User
	// ExpiresAt is the token expiry, or zero if the token does not carry one.
	ExpiresAt time.Time
	// Expired reports whether ExpiresAt has passed. The server decides
	// whether the token is still accepted.
	Expired bool
	// TokenFingerprint identifies the token without revealing it.
	TokenFingerprint string
}

// AuthService signs users in and out of the API.
type AuthService struct {
	auth     Authenticator
	sessions SessionManager
	logger   *slog.Logger
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(auth Authenticator, sessions SessionManager, logger *slog.Logger) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		auth:     auth,
		sessions: sessions,
		logger:   logger,
		now:      time.Now,
	}
}

// SignIn authenticates against the API and stores the resulting session.
// A failed sign-in stores nothing. Hooks on the client transport may still
// react to the failure, e.g. by ending the current session on a 401.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (session.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return session.Session{}, ErrMissingCredentials
	}

	resp, err := s.auth.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("sign-in failed", "username", username, "error", err)
		return session.Session{}, fmt.Errorf("sign in: %w", err)
	}

	user := session.User{
		ID:       resp.User.ID,
		Username: resp.User.Username,
		Email:    resp.User.Email,
		Role:     resp.User.Role,
	}
	if err := s.sessions.Login(resp.Token, user); err != nil {
		return session.Session{}, fmt.Errorf("store session: %w", err)
	}
	return s.sessions.Current(), nil
}

// SignOut ends the current session. It is harmless when already signed out.
func (s *AuthService) SignOut() {
	s.sessions.Logout()
}

// WhoAmI describes the current session.
// Returns ErrNotSignedIn if the session is anonymous.
func (s *AuthService) WhoAmI() (*Identity, error) {
	current := s.sessions.Current()
	if !current.IsAuthenticated {
		return nil, ErrNotSignedIn
	}

	id := &Identity{
		User:             *current.User,
		ExpiresAt:        current.ExpiresAt(),
		TokenFingerprint: session.Fingerprint(current.Token),
	}
	if !id.ExpiresAt.IsZero() {
		id.Expired = !s.now().Before(id.ExpiresAt)
	}
	return id, nil
}
