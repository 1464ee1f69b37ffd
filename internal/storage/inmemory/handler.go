package inmemory

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const maxObjectBytes = 32 * 1024 * 1024

// Handler serves the placeholder URLs handed out by PresignGetObject and
// PresignPutObject. It expects the base path to be stripped already, so the
// remaining path is the object key. The method a URL was issued for must
// match the request method.
func (s *Store) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /", s.putHandler)
	mux.HandleFunc("GET /", s.getHandler)
	return mux
}

func objectKey(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/")
}

func checkMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.URL.Query().Get(methodQuery) != method {
		http.Error(w, "url was not issued for "+method, http.StatusForbidden)
		return false
	}
	return true
}

func (s *Store) putHandler(w http.ResponseWriter, r *http.Request) {
	if !checkMethod(w, r, http.MethodPut) {
		return
	}
	key := objectKey(r)
	if key == "" {
		http.Error(w, "missing object key", http.StatusBadRequest)
		return
	}
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxObjectBytes))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "object too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "reading object failed", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.objects[key] = objectOf(key, int64(len(content)), time.Now())
	s.contents[key] = content
	s.mu.Unlock()
	slog.Debug("Stored object in memory", "key", key, "size", len(content))
	w.WriteHeader(http.StatusOK)
}

func (s *Store) getHandler(w http.ResponseWriter, r *http.Request) {
	if !checkMethod(w, r, http.MethodGet) {
		return
	}
	key := objectKey(r)
	s.mu.RLock()
	object, ok := s.objects[key]
	content := s.contents[key]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "object not found", http.StatusNotFound)
		return
	}
	http.ServeContent(w, r, key, object.LastModified, bytes.NewReader(content))
}
