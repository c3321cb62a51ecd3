// Package session owns the client-side authentication session: the single
// canonical Session value, its durable copy, and the listeners that observe it.
package session

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

// User is the identity record returned by the API on login.
type User struct {
	// ID is the server-side user identifier.
	ID string `json:"id" validate:"required"`
	// Username is the login name.
	Username string `json:"username" validate:"required"`
	// Email is informational only.
	Email string `json:"email"`
	// Role is the server-assigned role (e.g. "admin").
	Role string `json:"role"`
}

// Session is the authentication state of the client.
// An empty Token means no credential is held.
type Session struct {
	Token           string `json:"token"`
	User            *User  `json:"user"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// State is the coarse session state used by the gateway state machine.
type State int

const (
	// StateAnonymous means no credential is held.
	StateAnonymous State = iota
	// StateAuthenticated means a token and user are held.
	StateAuthenticated
)

// String returns the lower-case state name.
func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Anonymous returns the default unauthenticated session.
func Anonymous() Session {
	return Session{}
}

// State reports whether the session is anonymous or authenticated.
func (s Session) State() State {
	if s.IsAuthenticated {
		return StateAuthenticated
	}
	return StateAnonymous
}

// HasToken reports whether a credential is present.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// clone returns a copy that shares no memory with s.
func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Validate checks the authenticated-session invariant:
// an authenticated session carries a token and a valid user.
func (s Session) Validate() error {
	if !s.IsAuthenticated {
		return nil
	}
	if s.Token == "" {
		return ErrMissingToken
	}
	if s.User == nil {
		return ErrMissingUser
	}
	return validateUser(s.User)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validateUser(u *User) error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	if err := validate.Struct(u); err != nil {
		return &InvalidUserError{Err: err}
	}
	return nil
}
