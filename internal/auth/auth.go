// Package auth verifies the bearer tokens the admin console attaches to
// requests. Tokens are HMAC-SHA256 JWTs signed with the shared secret from
// configuration; there is no user account system behind them, the subject
// claim identifies the operator for audit purposes only.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yzsnstotz/drivequiz20251102-sub000/internal/config"
)

var (
	// ErrInvalidToken indicates the token format is invalid or the signature
	// does not match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrNotAdmin indicates a well-formed token without the admin role.
	ErrNotAdmin = errors.New("token does not carry the admin role")
)

// adminRole is the role claim value required on every accepted token.
const adminRole = "admin"

// Claims carries the verified identity of an admin request.
type Claims struct {
	// AdminID is the subject claim, the operator identity recorded on
	// review decisions and created tasks.
	AdminID string

	ExpiresAt time.Time
}

type jwtCustomClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates admin bearer tokens.
type Verifier struct {
	signingKey []byte
	clockSkew  time.Duration
	timeFunc   func() time.Time // injectable for testing
}

// NewVerifier creates a Verifier from the auth configuration.
func NewVerifier(cfg config.AuthConfig) (*Verifier, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return &Verifier{
		signingKey: []byte(cfg.JWTSecret),
		clockSkew:  2 * time.Minute,
		timeFunc:   time.Now,
	}, nil
}

// ValidateToken parses and verifies a token string and returns its claims.
// Returns ErrExpiredToken, ErrInvalidToken, or ErrNotAdmin on failure.
func (v *Verifier) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	now := v.timeFunc()

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(func() time.Time { return now }),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtCustomClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.signingKey, nil
		},
		parserOpts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwtCustomClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Role != adminRole {
		return nil, ErrNotAdmin
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	result := &Claims{AdminID: claims.Subject}
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result, nil
}
