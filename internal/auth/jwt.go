package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthDisabled is returned when a JWTService has no signing secret
// configured — the control plane runs unauthenticated (dev mode).
var ErrAuthDisabled = errors.New("auth: jwt service has no secret configured")

// ErrInvalidToken is returned for any token that fails to parse, fails
// signature verification, or carries no subject.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Operator identifies the caller of a control-plane mutation, embedded in
// and recovered from a signed JWT.
type Operator struct {
	ID    string
	Email string
	Name  string
}

// JWTService handles token signing and verification for control-plane
// requests that mutate actor state.
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService builds a JWT helper with the given secret and expiry. An
// empty secret disables signing/validation entirely (ErrAuthDisabled).
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Generate issues a signed token for op.
func (s *JWTService) Generate(op Operator) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(op.ID) == "" {
		return "", errors.New("auth: operator id required")
	}

	claims := Claims{
		Email: strings.TrimSpace(op.Email),
		Name:  strings.TrimSpace(op.Name),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   op.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	if s.expiry == 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT and returns the Operator embedded in it.
func (s *JWTService) Validate(token string) (Operator, error) {
	if s == nil || len(s.secret) == 0 {
		return Operator{}, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Operator{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Operator{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Operator{}, ErrInvalidToken
	}
	return Operator{
		ID:    claims.Subject,
		Email: strings.TrimSpace(claims.Email),
		Name:  strings.TrimSpace(claims.Name),
	}, nil
}
