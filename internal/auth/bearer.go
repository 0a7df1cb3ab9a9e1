package auth

import (
	"errors"
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

var (
	// ErrMissingCredentials indicates the request carried no Authorization header.
	ErrMissingCredentials = errors.New("auth: authorization header missing")
	// ErrMalformedCredentials indicates the Authorization header is not a bearer token.
	ErrMalformedCredentials = errors.New("auth: authorization header malformed")
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, error) {
	if r == nil {
		return "", ErrMissingCredentials
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrMissingCredentials
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", ErrMalformedCredentials
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMalformedCredentials
	}
	return token, nil
}
