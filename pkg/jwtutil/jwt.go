package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/Amoako419/PhotoShare/pkg/config"
)

// Token kinds carried in the claims. A refresh token is never accepted
// where an access token is expected and vice versa.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

var (
	// ErrNoSigningKey is returned when no signing key is configured.
	// Token issuance is impossible; this is an operator error, not a
	// client error.
	ErrNoSigningKey = errors.New("jwtutil: signing key not configured")

	// ErrInvalidToken covers every validation failure: bad signature,
	// malformed token, expired token, wrong kind. Callers must not
	// distinguish the reason in client-facing responses.
	ErrInvalidToken = errors.New("jwtutil: invalid token")
)

// Claims represents the JWT claims for user authentication.
// ChurchID is nil for platform principals (superadmin).
type Claims struct {
	UserID     uint    `json:"user_id"`
	Email      string  `json:"email"`
	ChurchID   *string `json:"church_id,omitempty"`
	ChurchName string  `json:"church_name,omitempty"`
	Role       string  `json:"role"`
	Kind       string  `json:"kind"`
	jwt.RegisteredClaims
}

// JWT signs and validates credential tokens with the configured key.
type JWT struct {
	cfg *config.JWTConfig
}

// New creates a JWT utility with the given configuration
func New(cfg *config.JWTConfig) *JWT {
	return &JWT{cfg: cfg}
}

// AccessLifetime returns the effective access token lifetime.
func (j *JWT) AccessLifetime() time.Duration { return j.cfg.AccessTokenLifetime }

// RefreshLifetime returns the effective refresh token lifetime.
func (j *JWT) RefreshLifetime() time.Duration { return j.cfg.RefreshTokenLifetime }

// Generate creates a signed token of the given kind. Each token gets a
// unique jti so refresh tokens can be individually revoked.
func (j *JWT) Generate(userID uint, email string, churchID *string, churchName, role, kind string) (string, error) {
	if j.cfg == nil || j.cfg.SigningKey == "" {
		return "", ErrNoSigningKey
	}

	lifetime := j.cfg.AccessTokenLifetime
	if kind == KindRefresh {
		lifetime = j.cfg.RefreshTokenLifetime
	}

	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Email:      email,
		ChurchID:   churchID,
		ChurchName: churchName,
		Role:       role,
		Kind:       kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.SigningKey))
}

// Validate validates and parses a token of the expected kind.
func (j *JWT) Validate(tokenString, kind string) (*Claims, error) {
	if j.cfg == nil || j.cfg.SigningKey == "" {
		return nil, ErrNoSigningKey
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Validate the signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.cfg.SigningKey), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: unexpected token kind", ErrInvalidToken)
	}
	return claims, nil
}
