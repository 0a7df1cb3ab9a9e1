package account

import (
	"context"
	"errors"
	"testing"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/blob"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/files"
	"github.com/stretchr/testify/require"
)

type callRecorder struct {
	calls []string
}

func (r *callRecorder) add(call string) {
	r.calls = append(r.calls, call)
}

type stubFiles struct {
	recorder  *callRecorder
	owned     []files.File
	deleteErr error
}

func (s *stubFiles) List(context.Context, string) ([]files.File, error) {
	s.recorder.add("files.list")
	return s.owned, nil
}

func (s *stubFiles) DeleteAll(context.Context, string) error {
	s.recorder.add("files.delete_all")
	return s.deleteErr
}

type stubDeleter struct {
	recorder *callRecorder
	name     string
	err      error
}

func (s *stubDeleter) DeleteAll(context.Context, string) error {
	s.recorder.add(s.name)
	return s.err
}

func (s *stubDeleter) Clear(context.Context, string) error {
	s.recorder.add(s.name)
	return s.err
}

func (s *stubDeleter) Delete(ctx context.Context, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.recorder.add(s.name)
	return s.err
}

type stubBlobs struct {
	recorder *callRecorder
	failOn   string
	err      error
}

func (s *stubBlobs) Upload(context.Context, blob.UploadInput) (blob.Object, error) {
	return blob.Object{}, errors.New("not implemented")
}

func (s *stubBlobs) Delete(ctx context.Context, externalID, resourceType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.recorder.add("blob.delete:" + resourceType + "/" + externalID)
	if externalID == s.failOn {
		return s.err
	}
	return nil
}

func newStubbedService(t *testing.T, owned []files.File, blobs *stubBlobs, recorder *callRecorder) *Service {
	t.Helper()
	service, err := NewService(Dependencies{
		Files:    &stubFiles{recorder: recorder, owned: owned},
		Texts:    &stubDeleter{recorder: recorder, name: "texts.delete_all"},
		Activity: &stubDeleter{recorder: recorder, name: "activity.clear"},
		Users:    &stubDeleter{recorder: recorder, name: "users.delete"},
		Blobs:    blobs,
	})
	require.NoError(t, err)
	return service
}

func TestDeleteRemovesBlobsThenRecordsThenUser(t *testing.T) {
	recorder := &callRecorder{}
	owned := []files.File{
		{ExternalID: "a", Type: blob.ResourceImage},
		{ExternalID: "b", Type: blob.ResourceRaw},
	}
	service := newStubbedService(t, owned, &stubBlobs{recorder: recorder}, recorder)

	require.NoError(t, service.Delete(context.Background(), "user-1"))
	require.Equal(t, []string{
		"files.list",
		"blob.delete:image/a",
		"blob.delete:raw/b",
		"files.delete_all",
		"texts.delete_all",
		"activity.clear",
		"users.delete",
	}, recorder.calls)
}

func TestDeleteStopsAtFirstBlobFailure(t *testing.T) {
	recorder := &callRecorder{}
	failure := errors.New("blob backend unavailable")
	owned := []files.File{
		{ExternalID: "a", Type: blob.ResourceImage},
		{ExternalID: "b", Type: blob.ResourceRaw},
		{ExternalID: "c", Type: blob.ResourceRaw},
	}
	service := newStubbedService(t, owned, &stubBlobs{recorder: recorder, failOn: "b", err: failure}, recorder)

	err := service.Delete(context.Background(), "user-1")
	require.ErrorIs(t, err, failure)
	require.Equal(t, []string{
		"files.list",
		"blob.delete:image/a",
		"blob.delete:raw/b",
	}, recorder.calls)
}

func TestDeleteRequiresUserID(t *testing.T) {
	recorder := &callRecorder{}
	service := newStubbedService(t, nil, &stubBlobs{recorder: recorder}, recorder)

	require.ErrorIs(t, service.Delete(context.Background(), ""), ErrMissingUserID)
	require.Empty(t, recorder.calls)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Dependencies{})
	require.Error(t, err)
}

func TestDeleteCompletesWhenCallerContextIsCancelled(t *testing.T) {
	recorder := &callRecorder{}
	owned := []files.File{
		{ExternalID: "a", Type: blob.ResourceImage},
		{ExternalID: "b", Type: blob.ResourceRaw},
	}
	service := newStubbedService(t, owned, &stubBlobs{recorder: recorder}, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, service.Delete(ctx, "user-1"))
	require.Equal(t, []string{
		"files.list",
		"blob.delete:image/a",
		"blob.delete:raw/b",
		"files.delete_all",
		"texts.delete_all",
		"activity.clear",
		"users.delete",
	}, recorder.calls)
}
