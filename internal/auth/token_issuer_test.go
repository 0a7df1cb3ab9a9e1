package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestIssuer(t *testing.T, secret string, clock func() time.Time) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte(secret),
		Issuer:        "cloudvault-auth",
		Audience:      "cloudvault-api",
		TokenTTL:      time.Hour,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return issuer
}

func TestTokenIssuerEmbedsIdentityClaims(t *testing.T) {
	issuer := newTestIssuer(t, "super-secret", nil)

	tokenString, expiresIn, err := issuer.IssueToken(context.Background(), Identity{
		UserID: "user-123",
		Email:  "a@x.com",
	})
	if err != nil {
		t.Fatalf("expected successful issuance: %v", err)
	}
	if expiresIn != int64(time.Hour.Seconds()) {
		t.Fatalf("expected one hour expiry, got %d", expiresIn)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("super-secret"), nil
	})
	if err != nil {
		t.Fatalf("failed to parse generated token: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Fatalf("unexpected userId claim %q", claims.UserID)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("unexpected email claim %q", claims.Email)
	}
	if claims.Issuer != "cloudvault-auth" {
		t.Fatalf("unexpected issuer %s", claims.Issuer)
	}
}

func TestTokenIssuerValidatesIssuedTokens(t *testing.T) {
	issuer := newTestIssuer(t, "another-secret", nil)

	tokenString, _, err := issuer.IssueToken(context.Background(), Identity{UserID: "user-321", Email: "b@x.com"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	claims, err := issuer.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("expected validation success: %v", err)
	}
	if claims.Identity() != (Identity{UserID: "user-321", Email: "b@x.com"}) {
		t.Fatalf("unexpected identity %#v", claims.Identity())
	}

	_, err = issuer.ValidateToken("invalid.token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error for malformed token, got %v", err)
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	issuedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	current := issuedAt
	issuer := newTestIssuer(t, "secret", func() time.Time { return current })

	tokenString, _, err := issuer.IssueToken(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	current = issuedAt.Add(59 * time.Minute)
	if _, err := issuer.ValidateToken(tokenString); err != nil {
		t.Fatalf("expected token to be valid within the hour: %v", err)
	}

	current = issuedAt.Add(61 * time.Minute)
	_, err = issuer.ValidateToken(tokenString)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected expiry to be preserved in the error chain, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t, "secret-a", nil)
	other := newTestIssuer(t, "secret-b", nil)

	tokenString, _, err := other.IssueToken(context.Background(), Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}
	if _, err := issuer.ValidateToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature mismatch to be rejected, got %v", err)
	}
}

func TestTokenIssuerRejectsNoneAlgorithm(t *testing.T) {
	issuer := newTestIssuer(t, "secret", nil)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cloudvault-auth",
			Audience:  []string{"cloudvault-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}
	if _, err := issuer.ValidateToken(tokenString); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unsigned token to be rejected, got %v", err)
	}
}

func TestIssueTokenRequiresUserID(t *testing.T) {
	issuer := newTestIssuer(t, "secret", nil)
	if _, _, err := issuer.IssueToken(context.Background(), Identity{Email: "a@x.com"}); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected missing user id error, got %v", err)
	}
}

func TestNewTokenIssuerValidatesConfig(t *testing.T) {
	testCases := []struct {
		name   string
		config TokenIssuerConfig
		want   error
	}{
		{
			name:   "missing secret",
			config: TokenIssuerConfig{Issuer: "i", Audience: "a", TokenTTL: time.Minute},
			want:   ErrMissingSigningSecret,
		},
		{
			name:   "missing issuer",
			config: TokenIssuerConfig{SigningSecret: []byte("s"), Audience: "a", TokenTTL: time.Minute},
			want:   ErrMissingIssuer,
		},
		{
			name:   "blank audience",
			config: TokenIssuerConfig{SigningSecret: []byte("s"), Issuer: "i", Audience: " ", TokenTTL: time.Minute},
			want:   ErrMissingAudience,
		},
		{
			name:   "non-positive ttl",
			config: TokenIssuerConfig{SigningSecret: []byte("s"), Issuer: "i", Audience: "a"},
			want:   ErrInvalidTokenTTL,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := NewTokenIssuer(testCase.config)
			if !errors.Is(err, testCase.want) {
				t.Fatalf("expected %v, got %v", testCase.want, err)
			}
		})
	}
}
