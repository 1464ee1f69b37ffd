// Package files implements the per-user file operations: listing, presigned
// download and upload URLs, and deletion.
//
// Checks run in a fixed order: required input, authorization, existence, action.
// A caller rejected by authorization never learns whether the key exists.
package files

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jdillenkofer/filedrop/internal/authorization"
	"github.com/jdillenkofer/filedrop/internal/identity"
	"github.com/jdillenkofer/filedrop/internal/sliceutils"
	"github.com/jdillenkofer/filedrop/internal/storage"
)

const DefaultUrlExpiration = 3600 * time.Second

const deleteSuccessMessage = "File deleted successfully"

type File struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type ListResult struct {
	Prefix                string
	Files                 []File
	Count                 int
	NextContinuationToken *string
}

type PresignedUrl struct {
	Url       string
	Key       string
	ExpiresIn int
}

type DeleteResult struct {
	Message string
	Key     string
}

type Service struct {
	engine        *authorization.Engine
	store         storage.ObjectStore
	urlExpiration time.Duration
}

func NewService(engine *authorization.Engine, store storage.ObjectStore, urlExpiration time.Duration) *Service {
	if urlExpiration <= 0 {
		urlExpiration = DefaultUrlExpiration
	}
	return &Service{
		engine:        engine,
		store:         store,
		urlExpiration: urlExpiration,
	}
}

func (s *Service) expiresIn() int {
	return int(s.urlExpiration / time.Second)
}

func (s *Service) List(ctx context.Context, id *identity.Identity, prefix string, continuationToken *string) (*ListResult, error) {
	resolvedPrefix := s.engine.ListPrefix(id, prefix)
	slog.Debug("Listing files", "subject", id.Subject, "prefix", resolvedPrefix)

	result, err := s.store.ListObjects(ctx, resolvedPrefix, continuationToken)
	if err != nil {
		return nil, backend(err)
	}
	files := sliceutils.Map(func(object storage.Object) File {
		return File{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
		}
	}, result.Objects)
	return &ListResult{
		Prefix:                resolvedPrefix,
		Files:                 files,
		Count:                 len(files),
		NextContinuationToken: result.NextContinuationToken,
	}, nil
}

func (s *Service) GetDownloadUrl(ctx context.Context, id *identity.Identity, key string) (*PresignedUrl, error) {
	if key == "" {
		return nil, invalidInput("S3 key is required")
	}
	if err := s.engine.AuthorizeDownload(id, key); err != nil {
		slog.Info("Download denied", "subject", id.Subject, "key", key)
		return nil, forbidden("Access denied", err)
	}
	if err := s.requireExisting(ctx, key); err != nil {
		return nil, err
	}

	slog.Debug("Presigning download", "subject", id.Subject, "key", key)
	url, err := s.store.PresignGetObject(ctx, key, s.urlExpiration)
	if err != nil {
		return nil, backend(err)
	}
	return &PresignedUrl{
		Url:       url,
		Key:       key,
		ExpiresIn: s.expiresIn(),
	}, nil
}

// GetUploadUrl presigns a PUT for the key derived from the identity. The key
// may already be occupied; the later upload wins.
func (s *Service) GetUploadUrl(ctx context.Context, id *identity.Identity, filename string, path *string) (*PresignedUrl, error) {
	if filename == "" {
		return nil, invalidInput("Filename is required")
	}
	key := s.engine.ResolveUploadKey(id, filename, path)

	slog.Debug("Presigning upload", "subject", id.Subject, "key", key)
	url, err := s.store.PresignPutObject(ctx, key, s.urlExpiration)
	if err != nil {
		return nil, backend(err)
	}
	return &PresignedUrl{
		Url:       url,
		Key:       key,
		ExpiresIn: s.expiresIn(),
	}, nil
}

func (s *Service) Delete(ctx context.Context, id *identity.Identity, key string) (*DeleteResult, error) {
	if key == "" {
		return nil, invalidInput("S3 key is required")
	}
	if err := s.engine.AuthorizeDelete(id, key); err != nil {
		slog.Info("Delete denied", "subject", id.Subject, "key", key)
		return nil, forbidden("You can only delete your own files", err)
	}
	if err := s.requireExisting(ctx, key); err != nil {
		return nil, err
	}

	slog.Info("Deleting file", "subject", id.Subject, "key", key)
	if err := s.store.DeleteObject(ctx, key); err != nil {
		return nil, backend(err)
	}
	return &DeleteResult{
		Message: deleteSuccessMessage,
		Key:     key,
	}, nil
}

func (s *Service) requireExisting(ctx context.Context, key string) error {
	exists, err := s.store.ObjectExists(ctx, key)
	if err != nil {
		return backend(err)
	}
	if !exists {
		return notFound("File not found")
	}
	return nil
}

// IsKind reports whether err carries one of the error kinds of this package.
func IsKind(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrBackend)
}
