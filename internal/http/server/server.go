package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jdillenkofer/filedrop/internal/authorization"
	"github.com/jdillenkofer/filedrop/internal/files"
	"github.com/jdillenkofer/filedrop/internal/http/httputils"
	"github.com/jdillenkofer/filedrop/internal/http/middlewares"
	"github.com/jdillenkofer/filedrop/internal/http/server/authentication"
	"github.com/jdillenkofer/filedrop/internal/identity"
	"github.com/jdillenkofer/filedrop/internal/sliceutils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const prefixQuery = "prefix"
const continuationTokenQuery = "continuationToken"
const keyQuery = "key"

const maxRequestBodyBytes = 64 * 1024

var errInvalidRequestBody = &files.Error{Kind: files.ErrInvalidInput, Message: "Invalid request body"}

type Server struct {
	service *files.Service
}

// SetupServer wires the file routes behind token verification. metrics may be nil.
func SetupServer(verifier *authentication.Verifier, service *files.Service, metrics *middlewares.HttpMetrics) http.Handler {
	server := &Server{
		service: service,
	}
	instrument := func(name string, handler http.HandlerFunc) http.Handler {
		if metrics == nil {
			return handler
		}
		return metrics.Instrument(name, handler)
	}
	mux := http.NewServeMux()
	mux.Handle("GET /files", instrument(authorization.OperationListFiles, server.listFilesHandler))
	mux.Handle("GET /download-url", instrument(authorization.OperationGetDownloadUrl, server.getDownloadUrlHandler))
	mux.Handle("POST /upload-url", instrument(authorization.OperationGetUploadUrl, server.getUploadUrlHandler))
	mux.Handle("DELETE /files", instrument(authorization.OperationDeleteFile, server.deleteFileHandler))
	mux.Handle("/files", methodNotAllowedHandler("GET, DELETE"))
	mux.Handle("/download-url", methodNotAllowedHandler("GET"))
	mux.Handle("/upload-url", methodNotAllowedHandler("POST"))
	mux.HandleFunc("/", notFoundHandler)
	var rootHandler http.Handler = mux
	rootHandler = authentication.MakeBearerMiddleware(verifier, rootHandler)
	rootHandler = middlewares.MakeCompressionMiddleware(rootHandler)
	rootHandler = middlewares.MakeCorsMiddleware(rootHandler)
	rootHandler = middlewares.MakeAccessLogMiddleware(rootHandler)
	rootHandler = middlewares.MakeRequestIdMiddleware(rootHandler)
	return rootHandler
}

func methodNotAllowedHandler(allow string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
	}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Not found"})
}

type HealthCheck func(ctx context.Context) error

func makeHealthCheckHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for _, check := range checks {
			err := check(ctx)
			if err != nil {
				slog.Warn("Health check failed", "error", err)
				w.WriteHeader(503)
				w.Write([]byte("Unhealthy"))
				return
			}
		}
		w.WriteHeader(200)
		w.Write([]byte("Healthy"))
	}
}

func SetupMonitoringServer(gatherer prometheus.Gatherer, checks ...HealthCheck) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", makeHealthCheckHandler(checks))
	var rootHandler http.Handler = mux
	return rootHandler
}

// identify resolves the caller from the verified token claims.
func identify(r *http.Request) (*identity.Identity, error) {
	claims, ok := authentication.ClaimsFromContext(r.Context())
	if !ok {
		return nil, identity.ErrMissingSubject
	}
	return identity.Extract(claims)
}

// decodeBody treats an empty body as an empty request. The body must hold
// exactly one JSON value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	err := decoder.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return errInvalidRequestBody
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errInvalidRequestBody
	}
	return nil
}

func (s *Server) listFilesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identify(r)
	if err != nil {
		handleError(err, w, r)
		return
	}
	query := r.URL.Query()
	result, err := s.service.List(ctx, id, query.Get(prefixQuery), httputils.GetQueryParam(query, continuationTokenQuery))
	if err != nil {
		handleError(err, w, r)
		return
	}
	writeJSON(w, http.StatusOK, ListFilesResult{
		Files: sliceutils.Map(func(file files.File) FileResult {
			return FileResult{
				Key:          file.Key,
				Size:         file.Size,
				LastModified: file.LastModified.UTC().Format(time.RFC3339),
			}
		}, result.Files),
		Prefix:                result.Prefix,
		Count:                 result.Count,
		NextContinuationToken: result.NextContinuationToken,
	})
}

func (s *Server) getDownloadUrlHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identify(r)
	if err != nil {
		handleError(err, w, r)
		return
	}
	result, err := s.service.GetDownloadUrl(ctx, id, r.URL.Query().Get(keyQuery))
	if err != nil {
		handleError(err, w, r)
		return
	}
	writeJSON(w, http.StatusOK, DownloadUrlResult{
		DownloadUrl: result.Url,
		S3Key:       result.Key,
		ExpiresIn:   result.ExpiresIn,
	})
}

func (s *Server) getUploadUrlHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identify(r)
	if err != nil {
		handleError(err, w, r)
		return
	}
	var request UploadUrlRequest
	if err := decodeBody(w, r, &request); err != nil {
		handleError(err, w, r)
		return
	}
	result, err := s.service.GetUploadUrl(ctx, id, request.Filename, request.Path)
	if err != nil {
		handleError(err, w, r)
		return
	}
	writeJSON(w, http.StatusOK, UploadUrlResult{
		UploadUrl: result.Url,
		S3Key:     result.Key,
		ExpiresIn: result.ExpiresIn,
	})
}

func (s *Server) deleteFileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := identify(r)
	if err != nil {
		handleError(err, w, r)
		return
	}
	var request DeleteFileRequest
	if err := decodeBody(w, r, &request); err != nil {
		handleError(err, w, r)
		return
	}
	result, err := s.service.Delete(ctx, id, request.Key)
	if err != nil {
		handleError(err, w, r)
		return
	}
	writeJSON(w, http.StatusOK, DeleteFileResult{
		Message: result.Message,
		S3Key:   result.Key,
	})
}
