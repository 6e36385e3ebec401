// Package auth issues and validates the admin API access tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"simtrack/internal/platform/middleware"
	dErrors "simtrack/pkg/domain-errors"
)

const (
	issuer   = "simtrack"
	audience = "simtrack-api"

	// RoleAdmin is the only role the bootstrap credentials carry.
	RoleAdmin = "admin"

	defaultTokenTTL = 12 * time.Hour
)

// Claims are the access token claims.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service verifies credentials and signs access tokens. Credentials come
// from the environment; there is no user store behind this.
type Service struct {
	signingKey    []byte
	adminUsername string
	adminPassword string
	tokenTTL      time.Duration
	now           func() time.Time
}

type Option func(s *Service)

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.tokenTTL = ttl
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService constructs the auth service.
func NewService(signingKey, adminUsername, adminPassword string, opts ...Option) *Service {
	s := &Service{
		signingKey:    []byte(signingKey),
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		tokenTTL:      defaultTokenTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login checks the credentials and returns a signed token. The comparison is
// constant time so the endpoint leaks nothing about which field was wrong.
func (s *Service) Login(username, password string) (string, error) {
	if s.adminPassword == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "login is not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
	if !userOK || !passOK {
		return "", dErrors.New(dErrors.CodeUnauthorized, "Invalid credentials")
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		Role:     RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  []string{audience},
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken implements middleware.JWTValidator.
func (s *Service) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
