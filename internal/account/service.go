// Package account removes a user together with everything the user owns.
package account

import (
	"context"
	"errors"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/blob"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/svcerr"
	"go.uber.org/zap"
)

// ErrMissingUserID indicates a deletion without a user identifier.
var ErrMissingUserID = errors.New("account: user id is required")

const opDeleteAccount = "account.delete"

type FileIndex interface {
	List(ctx context.Context, userID string) ([]files.File, error)
	DeleteAll(ctx context.Context, userID string) error
}

type TextStore interface {
	DeleteAll(ctx context.Context, userID string) error
}

type ActivityLog interface {
	Clear(ctx context.Context, userID string) error
}

type UserStore interface {
	Delete(ctx context.Context, userID string) error
}

// Dependencies lists the stores an account spans.
type Dependencies struct {
	Files    FileIndex
	Texts    TextStore
	Activity ActivityLog
	Users    UserStore
	Blobs    blob.Service
	Logger   *zap.Logger
}

// Service deletes accounts.
type Service struct {
	deps     Dependencies
	reporter svcerr.Reporter
}

// NewService constructs the account service; every dependency is required.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Files == nil:
		return nil, errors.New("account: file index is required")
	case deps.Texts == nil:
		return nil, errors.New("account: text store is required")
	case deps.Activity == nil:
		return nil, errors.New("account: activity log is required")
	case deps.Users == nil:
		return nil, errors.New("account: user store is required")
	case deps.Blobs == nil:
		return nil, errors.New("account: blob service is required")
	}
	return &Service{deps: deps, reporter: svcerr.NewReporter("account", deps.Logger)}, nil
}

// Delete removes every blob the user owns, then the file index, texts and
// activity entries, then the user. The first failure stops the sequence and
// nothing already removed is restored. The cascade runs to completion even
// when ctx is cancelled, so a disconnecting client cannot stop it halfway.
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return svcerr.New(opDeleteAccount, "missing_user_id", ErrMissingUserID)
	}
	ctx = context.WithoutCancel(ctx)
	userField := zap.String("user_id", userID)

	owned, err := s.deps.Files.List(ctx, userID)
	if err != nil {
		return s.reporter.Fail(opDeleteAccount, "list_files_failed", err, userField)
	}
	for _, file := range owned {
		if err := s.deps.Blobs.Delete(ctx, file.ExternalID, file.Type); err != nil {
			return s.reporter.Fail(opDeleteAccount, "blob_delete_failed", err,
				userField,
				zap.String("external_id", file.ExternalID))
		}
	}

	if err := s.deps.Files.DeleteAll(ctx, userID); err != nil {
		return s.reporter.Fail(opDeleteAccount, "delete_files_failed", err, userField)
	}
	if err := s.deps.Texts.DeleteAll(ctx, userID); err != nil {
		return s.reporter.Fail(opDeleteAccount, "delete_texts_failed", err, userField)
	}
	if err := s.deps.Activity.Clear(ctx, userID); err != nil {
		return s.reporter.Fail(opDeleteAccount, "delete_logs_failed", err, userField)
	}
	if err := s.deps.Users.Delete(ctx, userID); err != nil {
		return s.reporter.Fail(opDeleteAccount, "delete_user_failed", err, userField)
	}
	return nil
}
