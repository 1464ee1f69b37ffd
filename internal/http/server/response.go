package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jdillenkofer/filedrop/internal/files"
	"github.com/jdillenkofer/filedrop/internal/http/middlewares"
)

const contentTypeHeader = "Content-Type"
const applicationJsonContentType = "application/json"

type ErrorResponse struct {
	Error string `json:"error"`
}

type FileResult struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

type ListFilesResult struct {
	Files                 []FileResult `json:"files"`
	Prefix                string       `json:"prefix"`
	Count                 int          `json:"count"`
	NextContinuationToken *string      `json:"nextContinuationToken,omitempty"`
}

type DownloadUrlResult struct {
	DownloadUrl string `json:"downloadUrl"`
	S3Key       string `json:"s3Key"`
	ExpiresIn   int    `json:"expiresIn"`
}

type UploadUrlResult struct {
	UploadUrl string `json:"uploadUrl"`
	S3Key     string `json:"s3Key"`
	ExpiresIn int    `json:"expiresIn"`
}

type DeleteFileResult struct {
	Message string `json:"message"`
	S3Key   string `json:"s3Key"`
}

type UploadUrlRequest struct {
	Filename string  `json:"filename"`
	Path     *string `json:"path"`
}

type DeleteFileRequest struct {
	Key string `json:"key"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	out, err := json.Marshal(v)
	if err != nil {
		slog.Error("Error marshalling response", "error", err)
		statusCode = http.StatusInternalServerError
		out = []byte(`{"error":"Internal server error"}`)
	}
	w.Header().Set(contentTypeHeader, applicationJsonContentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(statusCode)
	w.Write(out)
}

// handleError is the only place where errors become responses.
func handleError(err error, w http.ResponseWriter, r *http.Request) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"
	var filesErr *files.Error
	if errors.As(err, &filesErr) {
		message = filesErr.Message
		switch {
		case errors.Is(err, files.ErrInvalidInput):
			statusCode = http.StatusBadRequest
		case errors.Is(err, files.ErrForbidden):
			statusCode = http.StatusForbidden
		case errors.Is(err, files.ErrNotFound):
			statusCode = http.StatusNotFound
		case errors.Is(err, files.ErrBackend):
			statusCode = http.StatusInternalServerError
		}
	}
	requestId := middlewares.RequestIdFromContext(r.Context())
	if statusCode == http.StatusInternalServerError {
		slog.Error("Request failed", "requestId", requestId, "path", r.URL.Path, "error", err)
	} else {
		slog.Debug("Request rejected", "requestId", requestId, "path", r.URL.Path, "status", statusCode, "error", err)
	}
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
