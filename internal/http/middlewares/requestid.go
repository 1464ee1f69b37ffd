package middlewares

import (
	"context"
	"net/http"

	"github.com/oklog/ulid/v2"
)

type RequestIdContextKey struct{}

const RequestIdHeader = "X-Request-Id"

func RequestIdFromContext(ctx context.Context) string {
	requestId, _ := ctx.Value(RequestIdContextKey{}).(string)
	return requestId
}

// MakeRequestIdMiddleware tags every request with a ULID, echoed in the response headers.
func MakeRequestIdMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := ulid.Make().String()
		w.Header().Set(RequestIdHeader, requestId)
		r = r.Clone(context.WithValue(r.Context(), RequestIdContextKey{}, requestId))
		h.ServeHTTP(w, r)
	})
}
