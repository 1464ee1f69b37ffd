package middlewares

import "net/http"

const allowedMethods = "GET, POST, DELETE, OPTIONS"
const allowedHeaders = "Authorization, Content-Type"

// MakeCorsMiddleware allows browser clients from any origin and answers
// preflight requests without reaching the wrapped handler.
func MakeCorsMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
