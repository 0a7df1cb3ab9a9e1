package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL matches the lifetime of tokens handed out at login.
	DefaultTokenTTL = time.Hour
)

var (
	ErrMissingSigningSecret = errors.New("auth: signing secret must be provided")
	ErrMissingIssuer        = errors.New("auth: issuer must be provided")
	ErrMissingAudience      = errors.New("auth: audience must be provided")
	ErrInvalidTokenTTL      = errors.New("auth: token ttl must be positive")
	ErrMissingUserID        = errors.New("auth: user id claim must be provided")
	ErrInvalidToken         = errors.New("auth: invalid token")
)

// Identity is the authenticated principal embedded in every token.
type Identity struct {
	UserID string
	Email  string
}

// Claims mirrors the JWT payload: {userId, email} plus registered claims.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity returns the principal carried by the claims.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email}
}

// TokenIssuerConfig configures the HS256 token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	Audience      string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// TokenIssuer signs and validates bearer tokens with a shared secret.
type TokenIssuer struct {
	signingSecret []byte
	issuer        string
	audience      string
	ttl           time.Duration
	clock         func() time.Time
}

// NewTokenIssuer validates the configuration and constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSigningSecret
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, ErrMissingIssuer
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		return nil, ErrMissingAudience
	}
	if cfg.TokenTTL <= 0 {
		return nil, ErrInvalidTokenTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		audience:      audience,
		ttl:           cfg.TokenTTL,
		clock:         clock,
	}, nil
}

// IssueToken produces a signed JWT for the identity and its lifetime in seconds.
func (i *TokenIssuer) IssueToken(_ context.Context, identity Identity) (string, int64, error) {
	if strings.TrimSpace(identity.UserID) == "" {
		return "", 0, ErrMissingUserID
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		UserID: identity.UserID,
		Email:  identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    i.issuer,
			Audience:  []string{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingSecret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(expiresAt.Sub(now).Seconds()), nil
}

// ValidateToken verifies signature, expiry, issuer and audience and returns the claims.
// Every failure wraps ErrInvalidToken; expiry additionally wraps jwt.ErrTokenExpired.
func (i *TokenIssuer) ValidateToken(tokenString string) (Claims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return i.signingSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(i.audience),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, ErrMissingUserID)
	}
	return *claims, nil
}
