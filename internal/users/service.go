package users

import (
	"context"
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/auth"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/ids"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/svcerr"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrEmailTaken indicates a registration for an address that already has an account.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrMissingEmail indicates an empty email address.
	ErrMissingEmail = errors.New("users: email is required")
	// ErrMissingPassword indicates an empty password.
	ErrMissingPassword = errors.New("users: password is required")
	// ErrMissingUserID indicates an operation was invoked without a user identifier.
	ErrMissingUserID = errors.New("users: user id is required")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingHasher     = errors.New("password hasher is required")
	errMissingIDProvider = errors.New("id provider is required")
)

const (
	opServiceNew    = "users.service.new"
	opRegister      = "users.register"
	opAuthenticate  = "users.authenticate"
	opResetPassword = "users.reset_password"
	opDeleteUser    = "users.delete"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ServiceConfig describes the dependencies of the credential store.
type ServiceConfig struct {
	Database   *gorm.DB
	Hasher     PasswordHasher
	IDProvider ids.Provider
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service persists user identities and verifies credentials.
type Service struct {
	db       *gorm.DB
	hasher   PasswordHasher
	ids      ids.Provider
	now      func() time.Time
	reporter svcerr.Reporter
}

// NewService validates the configuration and constructs the credential store.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, svcerr.New(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.Hasher == nil {
		return nil, svcerr.New(opServiceNew, "missing_hasher", errMissingHasher)
	}
	if cfg.IDProvider == nil {
		return nil, svcerr.New(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:       cfg.Database,
		hasher:   cfg.Hasher,
		ids:      cfg.IDProvider,
		now:      clock,
		reporter: svcerr.NewReporter("users", cfg.Logger),
	}, nil
}

// Register creates an account. The caller must log in separately to obtain a token.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return User{}, svcerr.New(opRegister, "missing_email", ErrMissingEmail)
	}
	if password == "" {
		return User{}, svcerr.New(opRegister, "missing_password", ErrMissingPassword)
	}

	exists, err := s.emailExists(ctx, normalized)
	if err != nil {
		return User{}, s.reporter.Fail(opRegister, "lookup_failed", err)
	}
	if exists {
		return User{}, svcerr.New(opRegister, "email_taken", ErrEmailTaken)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return User{}, s.reporter.Fail(opRegister, "hash_failed", err)
	}
	userID, err := s.ids.NewID()
	if err != nil {
		return User{}, s.reporter.Fail(opRegister, "id_generation_failed", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           userID,
		Email:        normalized,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		// A concurrent registration may have claimed the address between the
		// lookup and the insert; the unique index turns that into an error here.
		if taken, lookupErr := s.emailExists(ctx, normalized); lookupErr == nil && taken {
			return User{}, svcerr.New(opRegister, "email_taken", ErrEmailTaken)
		}
		return User{}, s.reporter.Fail(opRegister, "insert_failed", err)
	}
	return user, nil
}

// Authenticate returns the user when password matches the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" || password == "" {
		return User{}, svcerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}

	user, err := s.findByEmail(ctx, normalized)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, svcerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
	}
	if err != nil {
		return User{}, s.reporter.Fail(opAuthenticate, "lookup_failed", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return User{}, svcerr.New(opAuthenticate, "invalid_credentials", ErrInvalidCredentials)
		}
		return User{}, s.reporter.Fail(opAuthenticate, "compare_failed", err, zap.String("user_id", user.ID))
	}
	return user, nil
}

// ResetPassword overwrites the stored hash for userID. The current password is
// not checked; possession of a valid token is the only requirement.
func (s *Service) ResetPassword(ctx context.Context, userID, newPassword string) error {
	if userID == "" {
		return svcerr.New(opResetPassword, "missing_user_id", ErrMissingUserID)
	}
	if newPassword == "" {
		return svcerr.New(opResetPassword, "missing_password", ErrMissingPassword)
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return s.reporter.Fail(opResetPassword, "hash_failed", err, zap.String("user_id", userID))
	}
	err = s.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    s.now().UTC(),
		}).Error
	if err != nil {
		return s.reporter.Fail(opResetPassword, "update_failed", err, zap.String("user_id", userID))
	}
	return nil
}

// Delete removes the user record. Owned records are the caller's responsibility.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return svcerr.New(opDeleteUser, "missing_user_id", ErrMissingUserID)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", userID).Delete(&User{}).Error; err != nil {
		return s.reporter.Fail(opDeleteUser, "delete_failed", err, zap.String("user_id", userID))
	}
	return nil
}

func (s *Service) emailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Where("email = ?", email).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	return user, err
}
