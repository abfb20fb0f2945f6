// ABOUTME: Reads claims from backend-issued JWT access tokens
// ABOUTME: Verifies HS256 signatures when a secret is configured, otherwise only decodes

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims are the fields the dashboard needs from a backend access token.
type Claims struct {
	Subject   string
	TenantID  string // empty when the backend omitted tenant_id
	Role      string
	Email     string
	ExpiresAt time.Time // zero when the token carries no exp
}

// ClaimsReader extracts claims from an access token
type ClaimsReader interface {
	Read(tokenString string) (*Claims, error)
}

// JWTReader implements ClaimsReader for the backend's HS256 tokens.
// Without a secret the signature is not checked: the backend remains the
// authority and rejects forged tokens with a 401 on the first call.
type JWTReader struct {
	secret []byte
	now    func() time.Time
}

// NewJWTReader creates a reader. A nil or empty secret disables signature checks.
func NewJWTReader(secret []byte) *JWTReader {
	return &JWTReader{secret: secret, now: time.Now}
}

// Verifies reports whether signatures are checked
func (r *JWTReader) Verifies() bool {
	return len(r.secret) > 0
}

// Read parses the token and returns its claims. Expired tokens yield ErrExpiredToken.
func (r *JWTReader) Read(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := jwt.MapClaims{}
	if r.Verifies() {
		parser := jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithTimeFunc(r.now),
		)
		_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return r.secret, nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return nil, ErrExpiredToken
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	return r.toClaims(claims)
}

func (r *JWTReader) toClaims(mc jwt.MapClaims) (*Claims, error) {
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	c := &Claims{Subject: sub}
	c.TenantID, _ = mc["tenant_id"].(string)
	c.Role, _ = mc["role"].(string)
	c.Email, _ = mc["email"].(string)

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: exp: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
		if !r.now().Before(c.ExpiresAt) {
			return nil, ErrExpiredToken
		}
	}

	return c, nil
}
