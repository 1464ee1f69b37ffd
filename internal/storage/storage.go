package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jdillenkofer/filedrop/internal/lifecycle"
)

// MaxListKeys is the page size of a single ListObjects call.
const MaxListKeys int32 = 1000

var ErrEmptyKey = errors.New("object key must not be empty")

type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type ListObjectsResult struct {
	Objects               []Object
	NextContinuationToken *string
}

// ObjectStore is the subset of an object storage backend the file service needs.
// Every method performs exactly one backend call.
type ObjectStore interface {
	lifecycle.Manager
	ObjectExists(ctx context.Context, key string) (bool, error)
	ListObjects(ctx context.Context, prefix string, continuationToken *string) (*ListObjectsResult, error)
	DeleteObject(ctx context.Context, key string) error
	PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error)
	PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error)
}
