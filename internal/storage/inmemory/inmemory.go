package inmemory

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jdillenkofer/filedrop/internal/lifecycle"
	"github.com/jdillenkofer/filedrop/internal/storage"
)

const methodQuery = "X-Method"
const expiresQuery = "X-Expires"

// Store keeps objects in memory and hands out unsigned placeholder URLs.
// Handler serves those URLs. It backs tests and local development without an
// S3 endpoint.
type Store struct {
	*lifecycle.ValidatedLifecycle
	baseUrl  string
	pageSize int
	mu       sync.RWMutex
	objects  map[string]storage.Object
	contents map[string][]byte
}

var _ storage.ObjectStore = (*Store)(nil)

func NewStore(baseUrl string) *Store {
	return &Store{
		ValidatedLifecycle: lifecycle.NewValidatedLifecycle("InMemoryStore"),
		baseUrl:            strings.TrimSuffix(baseUrl, "/"),
		pageSize:           int(storage.MaxListKeys),
		objects:            map[string]storage.Object{},
		contents:           map[string][]byte{},
	}
}

// WithPageSize changes how many objects a single ListObjects call returns.
func (s *Store) WithPageSize(pageSize int) *Store {
	s.pageSize = pageSize
	return s
}

// PutObject records an object as if it had been uploaded.
func (s *Store) PutObject(key string, size int64, lastModified time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = objectOf(key, size, lastModified)
}

func objectOf(key string, size int64, lastModified time.Time) storage.Object {
	return storage.Object{
		Key:          key,
		Size:         size,
		LastModified: lastModified,
	}
}

func (s *Store) ObjectExists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, storage.ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *Store) ListObjects(ctx context.Context, prefix string, continuationToken *string) (*storage.ListObjectsResult, error) {
	s.mu.RLock()
	keys := []string{}
	for key := range s.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	start := 0
	if continuationToken != nil {
		idx, _ := slices.BinarySearch(keys, *continuationToken)
		start = idx
	}
	end := min(start+s.pageSize, len(keys))

	objects := make([]storage.Object, 0, end-start)
	for _, key := range keys[start:end] {
		objects = append(objects, s.objects[key])
	}
	s.mu.RUnlock()

	var nextContinuationToken *string
	if end < len(keys) {
		next := keys[end]
		nextContinuationToken = &next
	}
	return &storage.ListObjectsResult{
		Objects:               objects,
		NextContinuationToken: nextContinuationToken,
	}, nil
}

func (s *Store) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return storage.ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.contents, key)
	return nil
}

func (s *Store) presign(method string, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", storage.ErrEmptyKey
	}
	query := url.Values{}
	query.Set(methodQuery, method)
	query.Set(expiresQuery, strconv.FormatInt(int64(ttl/time.Second), 10))
	return fmt.Sprintf("%s/%s?%s", s.baseUrl, (&url.URL{Path: key}).EscapedPath(), query.Encode()), nil
}

func (s *Store) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presign("GET", key, ttl)
}

func (s *Store) PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.presign("PUT", key, ttl)
}
