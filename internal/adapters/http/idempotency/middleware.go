package idempotency

import (
	"encoding/json"
	"net/http"
)

// Header carries the client's request key.
const Header = "Idempotency-Key"

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware refuses a request whose key was already accepted with 409
// duplicate_request. Requests without the header pass through. A key is
// released when the handler answers with an error status so the client can
// retry.
func Middleware(keys Keys, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(Header)
		if key == "" {
			next(w, r)
			return
		}
		key = r.Method + " " + r.URL.Path + " " + key
		if keys.SeenAndRecord(r.Context(), key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"code":    "duplicate_request",
				"message": "request with this " + Header + " was already accepted",
			})
			return
		}
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		if sw.status >= http.StatusBadRequest {
			keys.Unrecord(r.Context(), key)
		}
	}
}
