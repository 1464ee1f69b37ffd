package middlewares

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	testutils "github.com/jdillenkofer/filedrop/internal/testing"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `{"files":[],"prefix":"users/u1/","count":0}`

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, payload)
})

func TestCorsPreflight(t *testing.T) {
	testutils.SkipIfIntegration(t)

	called := false
	handler := MakeCorsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/upload-url", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestCorsSetsOriginOnRegularRequests(t *testing.T) {
	testutils.SkipIfIntegration(t)

	rec := httptest.NewRecorder()
	MakeCorsMiddleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIdIsPropagated(t *testing.T) {
	testutils.SkipIfIntegration(t)

	var seen string
	handler := MakeRequestIdMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIdFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIdHeader))
	_, err := ulid.Parse(seen)
	assert.NoError(t, err)
}

func TestAccessLogKeepsStatus(t *testing.T) {
	testutils.SkipIfIntegration(t)

	handler := MakeAccessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download-url", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGzipCompression(t *testing.T) {
	testutils.SkipIfIntegration(t)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	rec := httptest.NewRecorder()
	MakeCompressionMiddleware(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestDeflateCompression(t *testing.T) {
	testutils.SkipIfIntegration(t)

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.Header.Set("Accept-Encoding", "deflate")
	rec := httptest.NewRecorder()
	MakeCompressionMiddleware(okHandler).ServeHTTP(rec, req)

	assert.Equal(t, "deflate", rec.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(flate.NewReader(rec.Body))
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestNoCompressionWithoutAcceptEncoding(t *testing.T) {
	testutils.SkipIfIntegration(t)

	rec := httptest.NewRecorder()
	MakeCompressionMiddleware(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/files", nil))
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, rec.Body.String())
}

func TestHttpMetrics(t *testing.T) {
	testutils.SkipIfIntegration(t)

	registry := prometheus.NewRegistry()
	metrics, err := NewHttpMetrics(registry)
	require.NoError(t, err)

	handler := metrics.Instrument("listFiles", okHandler)
	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/files", nil))
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.requests.WithLabelValues("listFiles", "200", "get")))

	_, err = NewHttpMetrics(registry)
	assert.Error(t, err)
}
