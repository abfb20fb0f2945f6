// ABOUTME: Authentication endpoints: login, register, refresh, logout, password reset, email verification
// ABOUTME: Login and register are called without credentials and return a TokenPair

package backend

import (
	"context"
	"net/http"
)

// Login exchanges email and password for tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	var out TokenPair
	body := map[string]string{"email": email, "password": password}
	if err := c.Do(ctx, Credentials{}, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Registration is the body of POST /auth/register.
type Registration struct {
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Plan        string `json:"plan"`
}

// Register creates a tenant and its first user, returning tokens for it.
func (c *Client) Register(ctx context.Context, reg Registration) (*TokenPair, error) {
	if reg.Plan == "" {
		reg.Plan = PlanFree
	}
	var out TokenPair
	if err := c.Do(ctx, Credentials{}, http.MethodPost, "/auth/register", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the caller's identity.
func (c *Client) Me(ctx context.Context, creds Credentials) (*Me, error) {
	var out Me
	if err := c.Do(ctx, creds, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var out TokenPair
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.Do(ctx, Credentials{}, http.MethodPost, "/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the caller's refresh tokens.
func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.Do(ctx, creds, http.MethodPost, "/auth/logout", nil, nil)
}

// RequestPasswordReset asks the backend to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.Do(ctx, Credentials{}, http.MethodPost, "/auth/request-password-reset", body, nil)
}

// ResetPassword applies a new password using the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "new_password": newPassword}
	return c.Do(ctx, Credentials{}, http.MethodPost, "/auth/reset-password", body, nil)
}

// RequestEmailVerification asks the backend to email a verification link.
func (c *Client) RequestEmailVerification(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.Do(ctx, Credentials{}, http.MethodPost, "/auth/request-email-verification", body, nil)
}

// VerifyEmail confirms an email address.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	body := map[string]string{"token": token}
	return c.Do(ctx, Credentials{}, http.MethodPost, "/auth/verify-email", body, nil)
}
