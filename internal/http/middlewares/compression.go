package middlewares

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

const acceptEncodingHeader = "Accept-Encoding"
const contentEncodingHeader = "Content-Encoding"
const contentLengthHeader = "Content-Length"

type compressingResponseWriter struct {
	io.Writer
	http.ResponseWriter
	wroteHeader bool
}

func (w *compressingResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.Header().Add("Vary", acceptEncodingHeader)
	// The content-length after compression is unknown
	w.Header().Del(contentLengthHeader)
	w.ResponseWriter.WriteHeader(code)
}

func (w *compressingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.Writer.Write(b)
}

// negotiateEncoding prefers gzip over deflate.
func negotiateEncoding(acceptEncoding string) string {
	switch {
	case strings.Contains(acceptEncoding, "gzip"):
		return "gzip"
	case strings.Contains(acceptEncoding, "deflate"):
		return "deflate"
	}
	return ""
}

// MakeCompressionMiddleware compresses response bodies with gzip or deflate,
// depending on what the client accepts.
func MakeCompressionMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := negotiateEncoding(r.Header.Get(acceptEncodingHeader))
		if encoding == "" || w.Header().Get(contentEncodingHeader) != "" {
			h.ServeHTTP(w, r)
			return
		}
		var compressor io.WriteCloser
		switch encoding {
		case "gzip":
			compressor = gzip.NewWriter(w)
		case "deflate":
			flateWriter, err := flate.NewWriter(w, flate.DefaultCompression)
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			compressor = flateWriter
		}
		w.Header().Set(contentEncodingHeader, encoding)
		defer compressor.Close()
		h.ServeHTTP(&compressingResponseWriter{Writer: compressor, ResponseWriter: w}, r)
	})
}
