package gateway

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/securevibes/authgate/internal/domain/session"
)

// DefaultLoginPath is where the client navigates after an authorization
// failure.
const DefaultLoginPath = "/login"

// SessionSource provides read-only access to the current session.
type SessionSource interface {
	Current() session.Session
}

// SessionTerminator ends the current session.
type SessionTerminator interface {
	Logout()
}

// AuthHook attaches "Authorization: Bearer <token>" to every request sent
// while the session holds a token. Without a token the request carries no
// Authorization header, even one set by the caller. It only reads the
// in-memory session and never blocks.
func AuthHook(source SessionSource) Hook {
	return HookFuncs{
		Before: func(req *http.Request) (*http.Request, error) {
			if s := source.Current(); s.HasToken() {
				req.Header.Set("Authorization", "Bearer "+s.Token)
			} else {
				req.Header.Del("Authorization")
			}
			return req, nil
		},
	}
}

// UnauthorizedHook terminates the session when the server answers 401.
//
// On a 401 it calls Logout exactly once and then navigates to loginPath
// unless the navigator is already there. It does so even when the session
// is already anonymous. The 401 response and every other response or
// transport error are returned unchanged; the original request is not
// retried.
func UnauthorizedHook(sessions SessionTerminator, nav Navigator, loginPath string, logger *slog.Logger) Hook {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return HookFuncs{
		After: func(req *http.Request, resp *http.Response, err error) (*http.Response, error) {
			if err != nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
				return resp, err
			}

			logger.Warn("authorization failure, terminating session",
				"method", req.Method,
				"url", req.URL.Redacted(),
			)
			sessions.Logout()

			if nav != nil && nav.Location() != loginPath {
				nav.Navigate(loginPath)
			}
			return resp, err
		},
	}
}

// RequestIDHook sets X-Request-ID on requests that do not carry one, so
// client and server logs can be correlated.
func RequestIDHook() Hook {
	return HookFuncs{
		Before: func(req *http.Request) (*http.Request, error) {
			if req.Header.Get("X-Request-ID") == "" {
				req.Header.Set("X-Request-ID", uuid.New().String())
			}
			return req, nil
		},
	}
}
