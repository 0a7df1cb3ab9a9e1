package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultPasswordCost is the bcrypt work factor applied to stored passwords.
	DefaultPasswordCost = 10
	// MaxPasswordBytes is the longest input bcrypt reads. Longer passwords are
	// truncated to this length before hashing and comparing.
	MaxPasswordBytes = 72
)

var (
	ErrEmptyPassword    = errors.New("auth: password must not be empty")
	ErrPasswordMismatch = errors.New("auth: password does not match")
)

// BcryptHasher hashes and verifies passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, falling back to DefaultPasswordCost
// when cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultPasswordCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hashed, err := bcrypt.GenerateFromPassword(truncatePassword(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Compare reports ErrPasswordMismatch when password does not produce hash.
func (h *BcryptHasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password))
	if err == nil {
		return nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

func truncatePassword(password string) []byte {
	raw := []byte(password)
	if len(raw) > MaxPasswordBytes {
		raw = raw[:MaxPasswordBytes]
	}
	return raw
}
