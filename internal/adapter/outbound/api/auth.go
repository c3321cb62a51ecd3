package api

import (
	"context"
	"net/http"
	"time"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserInfo describes the authenticated user.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginResponse is the data returned by a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// Login exchanges credentials for a bearer token.
// Wrong credentials yield an *APIError matching ErrUnauthorized.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	err := c.Do(ctx, http.MethodPost, "/auth/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
