package files

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jdillenkofer/filedrop/internal/authorization"
	"github.com/jdillenkofer/filedrop/internal/identity"
	"github.com/jdillenkofer/filedrop/internal/storage"
	"github.com/jdillenkofer/filedrop/internal/storage/inmemory"
	testutils "github.com/jdillenkofer/filedrop/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addrOf[T any](t T) *T { return &t }

var errBackendDown = errors.New("backend down")

// recordingStore counts backend calls and can fail on demand.
type recordingStore struct {
	*inmemory.Store
	calls   []string
	failing bool
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: inmemory.NewStore("http://localhost/files")}
}

func (r *recordingStore) ObjectExists(ctx context.Context, key string) (bool, error) {
	r.calls = append(r.calls, "ObjectExists")
	if r.failing {
		return false, errBackendDown
	}
	return r.Store.ObjectExists(ctx, key)
}

func (r *recordingStore) ListObjects(ctx context.Context, prefix string, continuationToken *string) (*storage.ListObjectsResult, error) {
	r.calls = append(r.calls, "ListObjects:"+prefix)
	if r.failing {
		return nil, errBackendDown
	}
	return r.Store.ListObjects(ctx, prefix, continuationToken)
}

func (r *recordingStore) DeleteObject(ctx context.Context, key string) error {
	r.calls = append(r.calls, "DeleteObject")
	if r.failing {
		return errBackendDown
	}
	return r.Store.DeleteObject(ctx, key)
}

func (r *recordingStore) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	r.calls = append(r.calls, "PresignGetObject")
	if r.failing {
		return "", errBackendDown
	}
	return r.Store.PresignGetObject(ctx, key, ttl)
}

func (r *recordingStore) PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	r.calls = append(r.calls, "PresignPutObject")
	if r.failing {
		return "", errBackendDown
	}
	return r.Store.PresignPutObject(ctx, key, ttl)
}

func newTestService(store storage.ObjectStore) *Service {
	return NewService(authorization.NewEngine(authorization.DefaultAdminGroup), store, 0)
}

func member(subject string) *identity.Identity {
	return &identity.Identity{Subject: subject, Groups: identity.Groups{"User-Group": {}}}
}

func admin(subject string) *identity.Identity {
	return &identity.Identity{Subject: subject, Groups: identity.Groups{"Admin-Group": {}}}
}

func TestNonAdminDownloadOfForeignKeyIsForbidden(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u2/secret.txt", 10, time.Now())

	_, err := newTestService(store).GetDownloadUrl(context.Background(), member("u1"), "users/u2/secret.txt")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Empty(t, store.calls)
}

func TestForbiddenIsCheckedBeforeExistence(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	service := newTestService(store)

	_, err := service.GetDownloadUrl(context.Background(), member("u1"), "users/u2/missing.txt")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = service.Delete(context.Background(), member("u1"), "users/u2/missing.txt")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.calls)
}

func TestMissingKeyIsInvalidInput(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	service := newTestService(store)
	ctx := context.Background()

	_, err := service.GetDownloadUrl(ctx, member("u1"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = service.Delete(ctx, admin("root"), "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = service.GetUploadUrl(ctx, member("u1"), "", addrOf("users/u1/a.txt"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, store.calls)
}

func TestDownloadOfMissingObjectIsNotFound(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()

	_, err := newTestService(store).GetDownloadUrl(context.Background(), member("u1"), "users/u1/missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, []string{"ObjectExists"}, store.calls)
}

func TestDownloadUrl(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u1/a.txt", 10, time.Now())

	result, err := newTestService(store).GetDownloadUrl(context.Background(), member("u1"), "users/u1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "users/u1/a.txt", result.Key)
	assert.Equal(t, 3600, result.ExpiresIn)
	assert.Contains(t, result.Url, "X-Method=GET")
	assert.Equal(t, []string{"ObjectExists", "PresignGetObject"}, store.calls)
}

func TestConfiguredExpiration(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	service := NewService(authorization.NewEngine(""), store, 5*time.Minute)

	result, err := service.GetUploadUrl(context.Background(), member("u1"), "a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, 300, result.ExpiresIn)
	assert.Contains(t, result.Url, "X-Expires=300")
}

func TestAdminDownloadOfAnyKey(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u2/secret.txt", 10, time.Now())

	result, err := newTestService(store).GetDownloadUrl(context.Background(), admin("root"), "users/u2/secret.txt")
	require.NoError(t, err)
	assert.Equal(t, "users/u2/secret.txt", result.Key)
}

func TestNonAdminUploadResolvesToOwnPrefix(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()

	result, err := newTestService(store).GetUploadUrl(context.Background(), member("u1"), "a.txt", addrOf("users/u2/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "users/u1/a.txt", result.Key)
	assert.Contains(t, result.Url, "users/u1/a.txt")
	assert.Contains(t, result.Url, "X-Method=PUT")
	assert.Equal(t, []string{"PresignPutObject"}, store.calls)
}

func TestAdminUploadUsesPath(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()

	result, err := newTestService(store).GetUploadUrl(context.Background(), admin("root"), "a.txt", addrOf("shared/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "shared/a.txt", result.Key)
}

func TestUploadToOccupiedKeyIsAllowed(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u1/a.txt", 10, time.Now())

	_, err := newTestService(store).GetUploadUrl(context.Background(), member("u1"), "a.txt", nil)
	assert.NoError(t, err)
}

func TestAdminDeleteOfMissingObjectIsNotFound(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()

	_, err := newTestService(store).Delete(context.Background(), admin("root"), "users/u2/old.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"ObjectExists"}, store.calls)
}

func TestDelete(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ctx := context.Background()
	store := newRecordingStore()
	store.PutObject("users/u1/a.txt", 10, time.Now())

	result, err := newTestService(store).Delete(ctx, member("u1"), "users/u1/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "File deleted successfully", result.Message)
	assert.Equal(t, "users/u1/a.txt", result.Key)
	assert.Equal(t, []string{"ObjectExists", "DeleteObject"}, store.calls)

	exists, err := store.Store.ObjectExists(ctx, "users/u1/a.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBackendFailuresAreBackendErrors(t *testing.T) {
	testutils.SkipIfIntegration(t)
	ctx := context.Background()
	store := newRecordingStore()
	store.failing = true
	service := newTestService(store)

	_, err := service.List(ctx, member("u1"), "", nil)
	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, errBackendDown)

	_, err = service.GetDownloadUrl(ctx, member("u1"), "users/u1/a.txt")
	assert.ErrorIs(t, err, ErrBackend)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = service.GetUploadUrl(ctx, member("u1"), "a.txt", nil)
	assert.ErrorIs(t, err, ErrBackend)

	_, err = service.Delete(ctx, admin("root"), "users/u1/a.txt")
	assert.ErrorIs(t, err, ErrBackend)
	assert.True(t, IsKind(err))
}

func TestNonAdminListIgnoresPrefix(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u1/a.txt", 1, time.Now())
	store.PutObject("users/u2/b.txt", 1, time.Now())

	result, err := newTestService(store).List(context.Background(), member("u1"), "users/u2/", nil)
	require.NoError(t, err)
	assert.Equal(t, "users/u1/", result.Prefix)
	require.Len(t, result.Files, 1)
	assert.Equal(t, "users/u1/a.txt", result.Files[0].Key)
	assert.Equal(t, []string{"ListObjects:users/u1/"}, store.calls)
}

func TestAdminListUsesRequestedPrefix(t *testing.T) {
	testutils.SkipIfIntegration(t)
	store := newRecordingStore()
	store.PutObject("users/u1/a.txt", 1, time.Now())
	store.PutObject("users/u2/b.txt", 1, time.Now())

	service := newTestService(store)
	result, err := service.List(context.Background(), admin("root"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "", result.Prefix)
	assert.Equal(t, 2, result.Count)

	result, err = service.List(context.Background(), admin("root"), "users/u2/", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestListCountMatchesLength(t *testing.T) {
	testutils.SkipIfIntegration(t)

	for _, n := range []int{0, 1, 7, 1000, 1001} {
		store := newRecordingStore()
		for i := range n {
			store.PutObject(fmt.Sprintf("users/u1/%05d.txt", i), int64(i), time.Now())
		}
		result, err := newTestService(store).List(context.Background(), member("u1"), "", nil)
		require.NoError(t, err)
		assert.NotNil(t, result.Files)
		assert.Equal(t, len(result.Files), result.Count)
		assert.Equal(t, n > int(storage.MaxListKeys), result.NextContinuationToken != nil)
		for _, file := range result.Files {
			assert.True(t, strings.HasPrefix(file.Key, "users/u1/"))
		}
	}
}
